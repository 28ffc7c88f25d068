package ledger

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/pbaille/doselog/internal/domain"
	"github.com/pbaille/doselog/internal/kv"
)

func morningEvening() []domain.ScheduleEntry {
	return []domain.ScheduleEntry{
		{Time: domain.MustTimeOfDay(8, 0), Label: "Morning"},
		{Time: domain.MustTimeOfDay(20, 0), Label: "Evening"},
	}
}

func TestRecordDoseDefaults(t *testing.T) {
	clock := &testClock{now: at(2026, 10, 19, 10, 0)}
	l := newTestLedger(t, kv.NewMemory(), clock)

	dose := l.RecordDose(context.Background(), "  ", time.Time{})

	if dose.Type != domain.DefaultDoseLabel {
		t.Fatalf("Type = %q, want %q", dose.Type, domain.DefaultDoseLabel)
	}
	if dose.Timestamp != clock.now.UnixMilli() {
		t.Fatalf("Timestamp = %d, want now", dose.Timestamp)
	}
	if dose.ID == "" {
		t.Fatal("dose id must be assigned")
	}
}

func TestCountDosesTodayIgnoresOrderAndOtherDays(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 10, 0)}
	l := newTestLedger(t, kv.NewMemory(), clock)

	l.RecordDose(ctx, "late", at(2026, 10, 19, 23, 59))
	l.RecordDose(ctx, "yesterday", at(2026, 10, 18, 23, 59))
	l.RecordDose(ctx, "midnight", at(2026, 10, 19, 0, 0))
	l.RecordDose(ctx, "tomorrow", at(2026, 10, 20, 0, 0))
	l.RecordDose(ctx, "dup", at(2026, 10, 19, 9, 0))
	l.RecordDose(ctx, "dup", at(2026, 10, 19, 9, 0))

	if got := l.CountDosesToday(); got != 4 {
		t.Fatalf("CountDosesToday() = %d, want 4", got)
	}
}

func TestCountDosesTodayUsesLedgerLocation(t *testing.T) {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 03:30 UTC on Oct 19 is still Oct 18 in New York.
	clock := &testClock{now: at(2026, 10, 19, 3, 30)}
	l, err := New(context.Background(), kv.NewMemory(), Options{Location: location, Now: clock.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.RecordDose(context.Background(), "", at(2026, 10, 18, 14, 0))
	l.RecordDose(context.Background(), "", at(2026, 10, 19, 5, 0))

	if got := l.CountDosesToday(); got != 1 {
		t.Fatalf("CountDosesToday() = %d, want 1", got)
	}
	if got := l.Summary().Date; got != "2026-10-18" {
		t.Fatalf("Summary().Date = %q, want 2026-10-18", got)
	}
}

func TestTwoDoseScheduleExample(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 21, 0)}

	tests := []struct {
		name           string
		yesterdayDoses int
		wantStreak     int
	}{
		{name: "yesterday complete", yesterdayDoses: 2, wantStreak: 2},
		{name: "yesterday incomplete", yesterdayDoses: 1, wantStreak: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, kv.NewMemory(), clock)
			l.SetSchedule(ctx, morningEvening())
			for i := 0; i < tt.yesterdayDoses; i++ {
				l.RecordDose(ctx, "", at(2026, 10, 18, 8+i, 0))
			}

			l.RecordDose(ctx, "Morning", at(2026, 10, 19, 8, 5))
			if got := l.CountDosesToday(); got != 1 {
				t.Fatalf("CountDosesToday() = %d, want 1", got)
			}
			if got := l.WeeklyCompliance()[6]; got != 1 {
				t.Fatalf("WeeklyCompliance()[6] = %d, want 1", got)
			}

			l.RecordDose(ctx, "Evening", at(2026, 10, 19, 20, 5))
			if got := l.WeeklyCompliance()[6]; got != 2 {
				t.Fatalf("WeeklyCompliance()[6] = %d, want 2", got)
			}
			if got := l.CurrentStreak(); got != tt.wantStreak {
				t.Fatalf("CurrentStreak() = %d, want %d", got, tt.wantStreak)
			}
		})
	}
}

func TestCurrentStreak(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 12, 0)}

	tests := []struct {
		name string
		// doses per day, index 0 = today, 1 = yesterday, ...
		perDay []int
		want   int
	}{
		{name: "no doses", perDay: nil, want: 0},
		{name: "incomplete today keeps earlier run", perDay: []int{1, 2, 2, 2}, want: 3},
		{name: "empty today keeps earlier run", perDay: []int{0, 2, 3}, want: 2},
		{name: "gap stops the scan", perDay: []int{2, 2, 0, 2, 2}, want: 2},
		{name: "incomplete yesterday resets", perDay: []int{2, 1, 2}, want: 1},
		{name: "extra doses still count once", perDay: []int{5, 4}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, kv.NewMemory(), clock)
			for day, n := range tt.perDay {
				for i := 0; i < n; i++ {
					l.RecordDose(ctx, "", at(2026, 10, 19-day, 6+i, 0))
				}
			}
			if got := l.CurrentStreak(); got != tt.want {
				t.Fatalf("CurrentStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCurrentStreakUsesScheduleLengthAndDefault(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 12, 0)}
	l := newTestLedger(t, kv.NewMemory(), clock)

	l.SetSchedule(ctx, []domain.ScheduleEntry{{Time: domain.MustTimeOfDay(9, 0), Label: "Daily"}})
	l.RecordDose(ctx, "", at(2026, 10, 19, 9, 0))
	l.RecordDose(ctx, "", at(2026, 10, 18, 9, 0))

	if got := l.CurrentStreak(); got != 2 {
		t.Fatalf("CurrentStreak() with one-slot schedule = %d, want 2", got)
	}

	l.SetSchedule(ctx, nil)
	if got := l.TargetPerDay(); got != domain.DefaultTargetPerDay {
		t.Fatalf("TargetPerDay() with empty schedule = %d, want %d", got, domain.DefaultTargetPerDay)
	}
	if got := l.CurrentStreak(); got != 0 {
		t.Fatalf("CurrentStreak() with empty schedule = %d, want 0", got)
	}
}

func TestCurrentStreakStopsAtScanLimit(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 12, 0)}
	l := newTestLedger(t, kv.NewMemory(), clock)

	today := at(2026, 10, 19, 0, 0)
	for day := 0; day < streakScanDays+5; day++ {
		d := today.AddDate(0, 0, -day)
		l.RecordDose(ctx, "", d.Add(8*time.Hour))
		l.RecordDose(ctx, "", d.Add(20*time.Hour))
	}

	if got := l.CurrentStreak(); got != streakScanDays {
		t.Fatalf("CurrentStreak() = %d, want %d", got, streakScanDays)
	}
}

func TestWeeklyCompliance(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: at(2026, 10, 19, 12, 0)}
	l := newTestLedger(t, kv.NewMemory(), clock)

	if got := l.WeeklyCompliance(); !reflect.DeepEqual(got, []int{0, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("WeeklyCompliance() on empty ledger = %v", got)
	}

	l.RecordDose(ctx, "", at(2026, 10, 12, 8, 0)) // 8 days ago, outside the window
	l.RecordDose(ctx, "", at(2026, 10, 13, 8, 0))
	for i := 0; i < 4; i++ {
		l.RecordDose(ctx, "", at(2026, 10, 16, 8+i, 0))
	}
	l.RecordDose(ctx, "", at(2026, 10, 19, 8, 0))
	l.RecordDose(ctx, "", at(2026, 10, 19, 9, 0))

	want := []int{1, 0, 0, 2, 0, 0, 2}
	if got := l.WeeklyCompliance(); !reflect.DeepEqual(got, want) {
		t.Fatalf("WeeklyCompliance() = %v, want %v", got, want)
	}
}

func TestDayBoundariesAcrossDST(t *testing.T) {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name  string
		day   time.Time
		hours float64
	}{
		{name: "spring forward", day: time.Date(2026, 3, 8, 0, 0, 0, 0, location), hours: 23},
		{name: "fall back", day: time.Date(2026, 11, 1, 0, 0, 0, 0, location), hours: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := domain.DayRange(tt.day, location)
			if got := end.Sub(start).Hours(); got != tt.hours {
				t.Fatalf("day length = %vh, want %vh", got, tt.hours)
			}

			y, m, d := tt.day.Date()
			local := func(day, hour, minute int) time.Time {
				return time.Date(y, m, day, hour, minute, 0, 0, location)
			}

			clock := &testClock{now: local(d, 23, 30)}
			l, err := New(ctx, kv.NewMemory(), Options{Location: location, Now: clock.Now})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			l.RecordDose(ctx, "", local(d, 0, 10))
			l.RecordDose(ctx, "", local(d, 23, 20))
			l.RecordDose(ctx, "", local(d+1, 0, 10))

			if got := l.CountDosesToday(); got != 2 {
				t.Fatalf("CountDosesToday() = %d, want 2", got)
			}
			if got, want := l.WeeklyCompliance(), []int{0, 0, 0, 0, 0, 0, 2}; !reflect.DeepEqual(got, want) {
				t.Fatalf("WeeklyCompliance() = %v, want %v", got, want)
			}
			if got := l.CurrentStreak(); got != 1 {
				t.Fatalf("CurrentStreak() = %d, want 1", got)
			}

			// Just after the next midnight only the 00:10 dose belongs to today.
			clock.set(local(d+1, 0, 30))
			if got := l.CountDosesToday(); got != 1 {
				t.Fatalf("CountDosesToday() next day = %d, want 1", got)
			}
			if got := l.CurrentStreak(); got != 1 {
				t.Fatalf("CurrentStreak() next day = %d, want 1 (yesterday complete)", got)
			}
		})
	}
}
