package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

// parseAt accepts an RFC3339 timestamp or a time of day ("8:05 AM", "20:05")
// taken to be today in loc. Empty means the zero time, which the ledger reads as now.
func parseAt(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	tod, err := domain.ParseTimeOfDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --at %q: want RFC3339 or a time of day", s)
	}
	return tod.On(now, loc), nil
}

// parseScheduleArg parses "8:00 AM=Morning Dose"
func parseScheduleArg(s string) (domain.ScheduleEntry, error) {
	timePart, label, ok := strings.Cut(s, "=")
	if !ok {
		return domain.ScheduleEntry{}, fmt.Errorf("schedule entry %q: want TIME=LABEL", s)
	}
	tod, err := domain.ParseTimeOfDay(timePart)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("schedule entry %q: %w", s, err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.ScheduleEntry{}, fmt.Errorf("schedule entry %q: label is required", s)
	}
	return domain.ScheduleEntry{Time: tod, Label: label}, nil
}

// parseRatings parses "1=4 3=5" style arguments and validates them against the catalog
func parseRatings(args []string) (map[int]int, error) {
	ratings := make(map[int]int, len(args))
	for _, arg := range args {
		idPart, ratingPart, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("rating %q: want SYMPTOM=RATING", arg)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("rating %q: symptom id must be a number", arg)
		}
		rating, err := strconv.Atoi(strings.TrimSpace(ratingPart))
		if err != nil {
			return nil, fmt.Errorf("rating %q: rating must be a number", arg)
		}
		ratings[id] = rating
	}
	if err := domain.ValidateRatings(ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// weekdayLabels names the 7 days ending today, oldest first
func weekdayLabels(now time.Time, loc *time.Location) []string {
	today := domain.StartOfDay(now, loc)
	labels := make([]string, 7)
	for i := range labels {
		labels[i] = today.AddDate(0, 0, i-6).Format("Mon")
	}
	return labels
}

func bar(n, target int) string {
	if target <= 0 {
		target = domain.DefaultTargetPerDay
	}
	filled := min(n, target)
	return strings.Repeat("#", filled) + strings.Repeat(".", target-filled)
}

func sortedIDs(m map[int]int) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
