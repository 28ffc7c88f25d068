package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

// Slot is a schedule entry with today's taken state
type Slot struct {
	domain.ScheduleEntry
	Taken bool `json:"taken"`
}

// NextDose describes when the next scheduled dose is due
type NextDose struct {
	Configured bool                 `json:"configured"`
	Slot       domain.ScheduleEntry `json:"slot"`
	Tomorrow   bool                 `json:"tomorrow"`
	At         time.Time            `json:"at"`
}

// String renders the dashboard text, e.g. "Tomorrow, 8:00 AM"
func (n NextDose) String() string {
	switch {
	case !n.Configured:
		return "Configure your dose schedule"
	case n.Tomorrow:
		return "Tomorrow, " + n.Slot.Time.String()
	default:
		return n.Slot.Time.String()
	}
}

// SetSchedule replaces the whole schedule. It does not mark it configured.
func (l *Ledger) SetSchedule(ctx context.Context, entries []domain.ScheduleEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Schedules = append([]domain.ScheduleEntry(nil), entries...)
	l.commit(ctx)
}

// MarkScheduleConfigured records whether the user has saved a schedule
func (l *Ledger) MarkScheduleConfigured(ctx context.Context, configured bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.IsScheduleSet = configured
	l.commit(ctx)
}

// Schedule returns the schedule in the order it was saved
func (l *Ledger) Schedule() []domain.ScheduleEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ScheduleEntry, len(l.state.Schedules))
	copy(out, l.state.Schedules)
	return out
}

// ScheduleConfigured reports whether a non-empty schedule has been saved
func (l *Ledger) ScheduleConfigured() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.configured()
}

// TodaySlots returns the schedule sorted by time; the first N slots are taken,
// N being today's dose count.
func (l *Ledger) TodaySlots() []Slot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.todaySlots()
}

// NextDose finds the next slot not yet covered by today's doses
func (l *Ledger) NextDose() NextDose {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextDose()
}

func (l *Ledger) configured() bool {
	return l.state.IsScheduleSet && len(l.state.Schedules) > 0
}

func (l *Ledger) sortedSchedule() []domain.ScheduleEntry {
	sorted := append([]domain.ScheduleEntry(nil), l.state.Schedules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

func (l *Ledger) todaySlots() []Slot {
	taken := l.countToday()
	sorted := l.sortedSchedule()

	slots := make([]Slot, len(sorted))
	for i, entry := range sorted {
		slots[i] = Slot{ScheduleEntry: entry, Taken: i < taken}
	}
	return slots
}

func (l *Ledger) nextDose() NextDose {
	if !l.configured() {
		return NextDose{}
	}

	now := l.clock()
	sorted := l.sortedSchedule()
	tomorrow := NextDose{
		Configured: true,
		Slot:       sorted[0],
		Tomorrow:   true,
		At:         sorted[0].Time.On(domain.StartOfDay(now, l.loc).AddDate(0, 0, 1), l.loc),
	}

	if l.countToday() >= len(sorted) {
		return tomorrow
	}

	current := domain.TimeOfDayOf(now, l.loc)
	for _, entry := range sorted {
		if entry.Time > current {
			return NextDose{
				Configured: true,
				Slot:       entry,
				At:         entry.Time.On(now, l.loc),
			}
		}
	}
	return tomorrow
}
