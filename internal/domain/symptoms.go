package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Rating bounds, inclusive
const (
	MinRating = 1
	MaxRating = 5
)

// Symptom ids. 4 is unused.
const (
	SymptomEnergy     = 1
	SymptomSleep      = 2
	SymptomMood       = 3
	SymptomConfidence = 5
)

var (
	ErrUnknownSymptom = errors.New("unknown symptom")
	ErrRatingRange    = errors.New("rating out of range")
	ErrNoRatings      = errors.New("no ratings given")
)

// Symptom is a trackable metric users rate on a 1-5 scale
type Symptom struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var symptomCatalog = []Symptom{
	{ID: SymptomEnergy, Name: "Energy Level"},
	{ID: SymptomSleep, Name: "Sleep Quality"},
	{ID: SymptomMood, Name: "Mood"},
	{ID: SymptomConfidence, Name: "Confidence"},
}

// Symptoms returns the known symptoms ordered by id
func Symptoms() []Symptom {
	out := make([]Symptom, len(symptomCatalog))
	copy(out, symptomCatalog)
	return out
}

// LookupSymptom finds a symptom by id
func LookupSymptom(id int) (Symptom, bool) {
	for _, s := range symptomCatalog {
		if s.ID == id {
			return s, true
		}
	}
	return Symptom{}, false
}

// ValidateRatings checks ids against the catalog and ratings against [MinRating, MaxRating]
func ValidateRatings(ratings map[int]int) error {
	if len(ratings) == 0 {
		return ErrNoRatings
	}

	ids := make([]int, 0, len(ratings))
	for id := range ratings {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if _, ok := LookupSymptom(id); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownSymptom, id)
		}
		if r := ratings[id]; r < MinRating || r > MaxRating {
			return fmt.Errorf("%w: symptom %d rated %d", ErrRatingRange, id, r)
		}
	}
	return nil
}
