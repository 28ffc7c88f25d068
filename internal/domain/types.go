package domain

import "time"

// DefaultDoseLabel is used when a dose is taken without a label
const DefaultDoseLabel = "Regular Dose"

// DefaultTargetPerDay is the expected dose count when no schedule is set
const DefaultTargetPerDay = 2

// DoseEvent represents a single logged dose
type DoseEvent struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
}

// Time returns the moment the dose was logged
func (d DoseEvent) Time() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// ScheduleEntry is one dose slot of the daily schedule
type ScheduleEntry struct {
	Time  TimeOfDay `json:"time"`
	Label string    `json:"label"`
}

// DailySymptomEntry holds the symptom ratings saved for one calendar day
type DailySymptomEntry struct {
	Date      DateKey     `json:"date"`
	Symptoms  map[int]int `json:"symptoms"`
	Timestamp int64       `json:"timestamp"`
}

// Time returns the moment the entry was saved
func (e DailySymptomEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// SymptomSample is one per-symptom rating row, kept for historical aggregation
type SymptomSample struct {
	ID        string `json:"id"`
	SymptomID int    `json:"symptomId"`
	Rating    int    `json:"rating"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the moment the rating applies to
func (s SymptomSample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// ResetState tracks the last day the ledger considered current
type ResetState struct {
	LastResetDate DateKey `json:"lastResetDate"`
}

// DefaultSchedule returns the morning/evening schedule a fresh ledger starts with
func DefaultSchedule() []ScheduleEntry {
	return []ScheduleEntry{
		{Time: MustTimeOfDay(8, 0), Label: "Morning Dose"},
		{Time: MustTimeOfDay(20, 0), Label: "Evening Dose"},
	}
}

// TargetPerDay returns the number of doses a schedule expects each day
func TargetPerDay(schedule []ScheduleEntry) int {
	if len(schedule) == 0 {
		return DefaultTargetPerDay
	}
	return len(schedule)
}
