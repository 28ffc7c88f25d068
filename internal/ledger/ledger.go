// Package ledger keeps a user's dose and symptom history and derives adherence
// figures (today's count, streaks, weekly compliance) from it.
//
// In-memory state is authoritative for the lifetime of a Ledger. Every mutation
// writes the full snapshot through the kv.Store it was built with; when that
// write fails the error is logged, the ledger stays dirty and the next mutation
// (or an explicit Flush) tries again.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/doselog/internal/domain"
	"github.com/pbaille/doselog/internal/kv"
	"github.com/pbaille/doselog/internal/platform/logger"
)

// DefaultKey is the store key used when Options.Key is empty
const DefaultKey = "dose-storage"

// Options configures New
type Options struct {
	// Key is the store key holding the snapshot. Defaults to DefaultKey.
	Key string
	// Location decides where calendar days begin. Defaults to time.Local.
	Location *time.Location
	// Now is the clock. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Ledger owns doses, symptom entries, the schedule and the reset date
type Ledger struct {
	mu     sync.RWMutex
	store  kv.Store
	key    string
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger

	state snapshot
	dirty bool
}

// New loads the ledger stored under opts.Key, or starts a fresh one when the key is absent
func New(ctx context.Context, store kv.Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: nil store")
	}

	l := &Ledger{
		store:  store,
		key:    opts.Key,
		loc:    opts.Location,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if l.key == "" {
		l.key = DefaultKey
	}
	if l.loc == nil {
		l.loc = time.Local
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = logger.Discard()
	}

	raw, err := store.Get(ctx, l.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		l.state = freshSnapshot(domain.DateKeyOf(l.clock(), l.loc))
		l.logger.Debug("ledger: starting fresh", "key", l.key)
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	state, err := decodeSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l.state = state
	l.logger.Debug("ledger: hydrated",
		"key", l.key,
		"doses", len(state.Doses),
		"symptom_entries", len(state.DailySymptomEntries),
	)
	return l, nil
}

// Location returns the timezone calendar days are computed in
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Flush writes pending state to the store and returns any error
func (l *Ledger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	return l.write(ctx)
}

// Dirty reports whether the store is behind in-memory state
func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

func (l *Ledger) clock() time.Time {
	return l.now().In(l.loc)
}

// commit must be called with mu held after every mutation.
func (l *Ledger) commit(ctx context.Context) {
	l.dirty = true
	if err := l.write(ctx); err != nil {
		l.logger.Warn("ledger: persist failed, will retry on next change", "key", l.key, "err", err)
	}
}

func (l *Ledger) write(ctx context.Context) error {
	raw, err := encodeSnapshot(l.state)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, l.key, raw); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	l.dirty = false
	return nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
