package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

// streakScanDays bounds how far back CurrentStreak looks
const streakScanDays = 100

// RecordDose appends a dose. An empty label uses domain.DefaultDoseLabel and a
// zero at means now. Duplicates at the same instant are kept and counted.
func (l *Ledger) RecordDose(ctx context.Context, label string, at time.Time) domain.DoseEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(label) == "" {
		label = domain.DefaultDoseLabel
	}
	if at.IsZero() {
		at = l.clock()
	}

	dose := domain.DoseEvent{
		ID:        newID(),
		Timestamp: at.UnixMilli(),
		Type:      label,
	}
	l.state.Doses = append(l.state.Doses, dose)
	l.commit(ctx)
	return dose
}

// Doses returns all doses in the order they were logged
func (l *Ledger) Doses() []domain.DoseEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.DoseEvent, len(l.state.Doses))
	copy(out, l.state.Doses)
	return out
}

// CountDosesToday counts doses logged between local midnight today and tomorrow
func (l *Ledger) CountDosesToday() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countToday()
}

// CurrentStreak counts consecutive days, ending today, on which at least
// TargetPerDay doses were logged. Today may still be incomplete without
// breaking the streak.
func (l *Ledger) CurrentStreak() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.streak()
}

// WeeklyCompliance returns the last 7 days, oldest first, each capped at TargetPerDay
func (l *Ledger) WeeklyCompliance() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.weekly()
}

// TargetPerDay is the number of scheduled doses, or domain.DefaultTargetPerDay without a schedule
func (l *Ledger) TargetPerDay() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.TargetPerDay(l.state.Schedules)
}

func (l *Ledger) countsByDay() map[domain.DateKey]int {
	counts := make(map[domain.DateKey]int)
	for _, d := range l.state.Doses {
		counts[domain.DateKeyOf(d.Time(), l.loc)]++
	}
	return counts
}

func (l *Ledger) countToday() int {
	return l.countBetween(domain.DayRange(l.clock(), l.loc))
}

func (l *Ledger) streak() int {
	if len(l.state.Doses) == 0 {
		return 0
	}

	target := domain.TargetPerDay(l.state.Schedules)
	counts := l.countsByDay()
	today := domain.StartOfDay(l.clock(), l.loc)

	streak := 0
	for i := 0; i < streakScanDays; i++ {
		key := domain.DateKeyOf(today.AddDate(0, 0, -i), l.loc)
		if counts[key] >= target {
			streak++
		} else if i > 0 {
			break
		}
	}
	return streak
}

func (l *Ledger) weekly() []int {
	target := domain.TargetPerDay(l.state.Schedules)
	counts := l.countsByDay()
	today := domain.StartOfDay(l.clock(), l.loc)

	data := make([]int, 0, 7)
	for i := 6; i >= 0; i-- {
		key := domain.DateKeyOf(today.AddDate(0, 0, -i), l.loc)
		data = append(data, min(counts[key], target))
	}
	return data
}

func (l *Ledger) earliestDose() (time.Time, bool) {
	if len(l.state.Doses) == 0 {
		return time.Time{}, false
	}
	first := l.state.Doses[0].Timestamp
	for _, d := range l.state.Doses[1:] {
		if d.Timestamp < first {
			first = d.Timestamp
		}
	}
	return time.UnixMilli(first).In(l.loc), true
}

func (l *Ledger) countBetween(start, end time.Time) int {
	n := 0
	for _, d := range l.state.Doses {
		at := d.Time()
		if !at.Before(start) && at.Before(end) {
			n++
		}
	}
	return n
}
