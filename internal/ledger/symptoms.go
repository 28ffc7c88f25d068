package ledger

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

// RecordSymptoms saves today's ratings, replacing any entry already saved
// today, and appends one SymptomSample per rating. Ratings are not range
// checked here; see domain.ValidateRatings.
func (l *Ledger) RecordSymptoms(ctx context.Context, ratings map[int]int) domain.DailySymptomEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	today := domain.DateKeyOf(now, l.loc)
	entry := domain.DailySymptomEntry{
		Date:      today,
		Symptoms:  maps.Clone(ratings),
		Timestamp: now.UnixMilli(),
	}
	if entry.Symptoms == nil {
		entry.Symptoms = map[int]int{}
	}

	kept := l.state.DailySymptomEntries[:0:0]
	for _, e := range l.state.DailySymptomEntries {
		if e.Date != today {
			kept = append(kept, e)
		}
	}
	l.state.DailySymptomEntries = append(kept, entry)

	ids := make([]int, 0, len(ratings))
	for id := range ratings {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		l.state.Symptoms = append(l.state.Symptoms, domain.SymptomSample{
			ID:        newID(),
			SymptomID: id,
			Rating:    ratings[id],
			Timestamp: now.UnixMilli(),
		})
	}

	l.commit(ctx)
	return cloneEntry(entry)
}

// RecordSymptomSample appends one rating to the sample history without
// touching the daily entries. A zero at means now.
func (l *Ledger) RecordSymptomSample(ctx context.Context, symptomID, rating int, at time.Time) domain.SymptomSample {
	l.mu.Lock()
	defer l.mu.Unlock()

	if at.IsZero() {
		at = l.clock()
	}

	sample := domain.SymptomSample{
		ID:        newID(),
		SymptomID: symptomID,
		Rating:    rating,
		Timestamp: at.UnixMilli(),
	}
	l.state.Symptoms = append(l.state.Symptoms, sample)
	l.commit(ctx)
	return sample
}

// TodaySymptomEntry returns the entry saved for today, if any
func (l *Ledger) TodaySymptomEntry() (domain.DailySymptomEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entryFor(domain.DateKeyOf(l.clock(), l.loc))
	if !ok {
		return domain.DailySymptomEntry{}, false
	}
	return cloneEntry(entry), true
}

// HasAnsweredToday is false once a new day has started past ResetHour, even
// before CheckAndResetDaily runs; otherwise it reports whether today has an entry.
func (l *Ledger) HasAnsweredToday() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.answeredToday()
}

// DailySymptomEntries returns one entry per answered day
func (l *Ledger) DailySymptomEntries() []domain.DailySymptomEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.DailySymptomEntry, len(l.state.DailySymptomEntries))
	for i, e := range l.state.DailySymptomEntries {
		out[i] = cloneEntry(e)
	}
	return out
}

// SymptomSamples returns the per-symptom history
func (l *Ledger) SymptomSamples() []domain.SymptomSample {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.SymptomSample, len(l.state.Symptoms))
	copy(out, l.state.Symptoms)
	return out
}

func (l *Ledger) answeredToday() bool {
	now := l.clock()
	if NeedsReset(l.state.LastResetDate, now, l.loc) {
		return false
	}
	_, ok := l.entryFor(domain.DateKeyOf(now, l.loc))
	return ok
}

func (l *Ledger) entryFor(day domain.DateKey) (domain.DailySymptomEntry, bool) {
	for _, e := range l.state.DailySymptomEntries {
		if e.Date == day {
			return e, true
		}
	}
	return domain.DailySymptomEntry{}, false
}

func cloneEntry(e domain.DailySymptomEntry) domain.DailySymptomEntry {
	e.Symptoms = maps.Clone(e.Symptoms)
	return e
}
