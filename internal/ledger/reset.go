package ledger

import (
	"context"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

// ResetHour is the local hour from which a new calendar day counts as started
const ResetHour = 8

// NeedsReset reports whether now is on a different day than last and the
// reset hour has passed. It is evaluated on every read, so callers never see
// a stale day even if CheckAndResetDaily has not run yet.
func NeedsReset(last domain.DateKey, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return domain.DateKeyOf(local, loc) != last && local.Hour() >= ResetHour
}

// CheckAndResetDaily advances the reset date to today when NeedsReset holds.
// It reports whether a reset happened.
func (l *Ledger) CheckAndResetDaily(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if !NeedsReset(l.state.LastResetDate, now, l.loc) {
		return false
	}

	previous := l.state.LastResetDate
	l.state.LastResetDate = domain.DateKeyOf(now, l.loc)
	l.commit(ctx)
	l.logger.Debug("ledger: daily reset", "from", previous, "to", l.state.LastResetDate)
	return true
}

// LastResetDate returns the day the ledger last rolled over to
func (l *Ledger) LastResetDate() domain.DateKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.LastResetDate
}
