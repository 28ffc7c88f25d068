package main

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

func TestParseAt(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2026-10-18T21:30:00Z", want: time.Date(2026, 10, 18, 21, 30, 0, 0, time.UTC)},
		{in: "8:05 AM", want: time.Date(2026, 10, 19, 8, 5, 0, 0, time.UTC)},
		{in: "20:15", want: time.Date(2026, 10, 19, 20, 15, 0, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAt(tt.in, now, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseAt(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAt(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("parseAt(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseScheduleArg(t *testing.T) {
	got, err := parseScheduleArg("8:00 PM= Evening Dose ")
	if err != nil {
		t.Fatalf("parseScheduleArg() error = %v", err)
	}
	want := domain.ScheduleEntry{Time: domain.MustTimeOfDay(20, 0), Label: "Evening Dose"}
	if got != want {
		t.Fatalf("parseScheduleArg() = %+v, want %+v", got, want)
	}

	for _, bad := range []string{"8:00 PM", "8:00 PM=", "noon=Lunch"} {
		if _, err := parseScheduleArg(bad); err == nil {
			t.Fatalf("parseScheduleArg(%q) error = nil", bad)
		}
	}
}

func TestParseRatings(t *testing.T) {
	got, err := parseRatings([]string{"1=4", "3=5"})
	if err != nil {
		t.Fatalf("parseRatings() error = %v", err)
	}
	if want := map[int]int{1: 4, 3: 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("parseRatings() = %v, want %v", got, want)
	}

	if _, err := parseRatings([]string{"4=3"}); !errors.Is(err, domain.ErrUnknownSymptom) {
		t.Fatalf("parseRatings(unknown) error = %v, want ErrUnknownSymptom", err)
	}
	if _, err := parseRatings([]string{"1=6"}); !errors.Is(err, domain.ErrRatingRange) {
		t.Fatalf("parseRatings(out of range) error = %v, want ErrRatingRange", err)
	}
	if _, err := parseRatings([]string{"energy=4"}); err == nil {
		t.Fatal("parseRatings(non-numeric id) error = nil")
	}
}

func TestWeekdayLabels(t *testing.T) {
	// 2026-10-19 is a Monday.
	got := weekdayLabels(time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), time.UTC)
	want := []string{"Tue", "Wed", "Thu", "Fri", "Sat", "Sun", "Mon"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("weekdayLabels() = %v, want %v", got, want)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		n, target int
		want      string
	}{
		{n: 0, target: 2, want: ".."},
		{n: 1, target: 2, want: "#."},
		{n: 3, target: 2, want: "##"},
		{n: 1, target: 0, want: "#."},
	}
	for _, tt := range tests {
		if got := bar(tt.n, tt.target); got != tt.want {
			t.Fatalf("bar(%d, %d) = %q, want %q", tt.n, tt.target, got, tt.want)
		}
	}
}
