package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pbaille/doselog/internal/domain"
)

const snapshotVersion = 1

var (
	// ErrCorruptSnapshot means the stored value is not a readable ledger
	ErrCorruptSnapshot = errors.New("corrupt ledger snapshot")

	// ErrUnsupportedVersion means the snapshot was written by a newer release
	ErrUnsupportedVersion = errors.New("unsupported ledger snapshot version")
)

type snapshot struct {
	Version             int                        `json:"version"`
	Doses               []domain.DoseEvent         `json:"doses"`
	Symptoms            []domain.SymptomSample     `json:"symptoms"`
	DailySymptomEntries []domain.DailySymptomEntry `json:"dailySymptomEntries"`
	Schedules           []domain.ScheduleEntry     `json:"schedules"`
	IsScheduleSet       bool                       `json:"isScheduleSet"`
	LastResetDate       domain.DateKey             `json:"lastResetDate"`
}

func freshSnapshot(today domain.DateKey) snapshot {
	return snapshot{
		Version:       snapshotVersion,
		Schedules:     domain.DefaultSchedule(),
		LastResetDate: today,
	}
}

func encodeSnapshot(s snapshot) (string, error) {
	s.Version = snapshotVersion
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

// snapshotFields lists the keys a stored snapshot carries at least one of
var snapshotFields = []string{
	"doses",
	"symptoms",
	"dailySymptomEntries",
	"schedules",
	"isScheduleSet",
	"lastResetDate",
}

// decodeSnapshot reads either a bare snapshot or one nested under "state", the
// layout the mobile app's persisted store uses for the same key.
func decodeSnapshot(raw string) (snapshot, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc == nil {
		return snapshot{}, fmt.Errorf("%w: not an object", ErrCorruptSnapshot)
	}

	body := []byte(raw)
	if state, ok := doc["state"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(state, &inner); err != nil || inner == nil {
			return snapshot{}, fmt.Errorf("%w: state is not an object", ErrCorruptSnapshot)
		}
		doc, body = inner, state
	}

	var s snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	// Snapshots written before versioning carry no version field.
	if s.Version == 0 {
		s.Version = snapshotVersion
	}
	if s.Version > snapshotVersion {
		return snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}

	if !hasAnyField(doc) {
		return snapshot{}, fmt.Errorf("%w: no ledger fields", ErrCorruptSnapshot)
	}
	return s, nil
}

func hasAnyField(doc map[string]json.RawMessage) bool {
	for _, f := range snapshotFields {
		if _, ok := doc[f]; ok {
			return true
		}
	}
	return false
}
