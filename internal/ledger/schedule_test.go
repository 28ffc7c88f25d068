package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/pbaille/doselog/internal/domain"
	"github.com/pbaille/doselog/internal/kv"
)

func TestNextDose(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		now          time.Time
		dosesToday   int
		wantSlot     domain.TimeOfDay
		wantTomorrow bool
		wantString   string
	}{
		{name: "morning missed", now: at(2026, 10, 19, 10, 0), dosesToday: 0, wantSlot: domain.MustTimeOfDay(20, 0), wantString: "8:00 PM"},
		{name: "before first slot", now: at(2026, 10, 19, 6, 0), dosesToday: 0, wantSlot: domain.MustTimeOfDay(8, 0), wantString: "8:00 AM"},
		{name: "all taken", now: at(2026, 10, 19, 10, 0), dosesToday: 2, wantSlot: domain.MustTimeOfDay(8, 0), wantTomorrow: true, wantString: "Tomorrow, 8:00 AM"},
		{name: "after last slot", now: at(2026, 10, 19, 21, 0), dosesToday: 1, wantSlot: domain.MustTimeOfDay(8, 0), wantTomorrow: true, wantString: "Tomorrow, 8:00 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &testClock{now: tt.now}
			l := newTestLedger(t, kv.NewMemory(), clock)
			// Saved out of order on purpose.
			l.SetSchedule(ctx, []domain.ScheduleEntry{
				{Time: domain.MustTimeOfDay(20, 0), Label: "Evening"},
				{Time: domain.MustTimeOfDay(8, 0), Label: "Morning"},
			})
			l.MarkScheduleConfigured(ctx, true)
			for i := 0; i < tt.dosesToday; i++ {
				l.RecordDose(ctx, "", tt.now.Add(-time.Minute))
			}

			next := l.NextDose()
			if !next.Configured {
				t.Fatal("NextDose().Configured = false")
			}
			if next.Slot.Time != tt.wantSlot || next.Tomorrow != tt.wantTomorrow {
				t.Fatalf("NextDose() = %+v, want slot %v tomorrow=%v", next, tt.wantSlot, tt.wantTomorrow)
			}
			if got := next.String(); got != tt.wantString {
				t.Fatalf("String() = %q, want %q", got, tt.wantString)
			}
			if next.Tomorrow && next.At.Day() != 20 {
				t.Fatalf("tomorrow's dose At = %s", next.At)
			}
		})
	}
}

func TestNextDoseRequiresConfiguredSchedule(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, kv.NewMemory(), &testClock{now: at(2026, 10, 19, 10, 0)})

	if next := l.NextDose(); next.Configured || next.String() != "Configure your dose schedule" {
		t.Fatalf("NextDose() on default schedule = %+v", next)
	}

	l.MarkScheduleConfigured(ctx, true)
	l.SetSchedule(ctx, nil)
	if l.ScheduleConfigured() {
		t.Fatal("an empty schedule must not count as configured")
	}
}

func TestTodaySlotsMarksEarliestSlotsTaken(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 12, 0)}
	l := newTestLedger(t, kv.NewMemory(), clock)

	l.SetSchedule(ctx, []domain.ScheduleEntry{
		{Time: domain.MustTimeOfDay(20, 0), Label: "Evening"},
		{Time: domain.MustTimeOfDay(13, 0), Label: "Lunch"},
		{Time: domain.MustTimeOfDay(8, 0), Label: "Morning"},
	})
	l.RecordDose(ctx, "", at(2026, 10, 19, 8, 10))
	l.RecordDose(ctx, "", at(2026, 10, 18, 20, 0))

	slots := l.TodaySlots()
	if len(slots) != 3 {
		t.Fatalf("TodaySlots() len = %d, want 3", len(slots))
	}
	wantLabels := []string{"Morning", "Lunch", "Evening"}
	wantTaken := []bool{true, false, false}
	for i, s := range slots {
		if s.Label != wantLabels[i] || s.Taken != wantTaken[i] {
			t.Fatalf("slot %d = %+v, want %s taken=%v", i, s, wantLabels[i], wantTaken[i])
		}
	}

	// A new day clears the taken flags without any explicit reset call.
	clock.set(at(2026, 10, 20, 9, 0))
	for _, s := range l.TodaySlots() {
		if s.Taken {
			t.Fatalf("slot %s still taken on a new day", s.Label)
		}
	}
}

func TestScheduleIsReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, kv.NewMemory(), &testClock{now: at(2026, 10, 19, 12, 0)})

	entries := []domain.ScheduleEntry{{Time: domain.MustTimeOfDay(7, 0), Label: "Only"}}
	l.SetSchedule(ctx, entries)
	entries[0].Label = "mutated"

	got := l.Schedule()
	if len(got) != 1 || got[0].Label != "Only" {
		t.Fatalf("Schedule() = %+v", got)
	}
}
