package ledger

import (
	"math"
	"time"

	"github.com/pbaille/doselog/internal/domain"
)

const (
	complianceWeeks   = 4
	symptomTrendWeeks = 6

	maxEnergy              = 5.0
	maxDoseBonus           = 2.0
	doseBonusPerDose       = 0.1
	maxComplianceBonus     = 1.5
	consistencyBonusPerWk  = 0.2
	consistencyMasterFloor = 80
	weekStreakGoal         = 7
)

// Achievement is a milestone shown on the progress screen
type Achievement struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	AchievedAt  *time.Time `json:"achieved_at,omitempty"`
	// Progress is a percentage towards a locked achievement.
	Progress *int `json:"progress,omitempty"`
}

// Summary bundles the figures the dashboard shows
type Summary struct {
	Date               domain.DateKey `json:"date"`
	DosesToday         int            `json:"doses_today"`
	TargetPerDay       int            `json:"target_per_day"`
	Streak             int            `json:"streak"`
	Weekly             []int          `json:"weekly"`
	AnsweredToday      bool           `json:"answered_today"`
	ScheduleConfigured bool           `json:"schedule_configured"`
	Next               NextDose       `json:"next_dose"`
	Slots              []Slot         `json:"slots"`
}

// Progress bundles the long-range figures of the progress screen
type Progress struct {
	MonthlyCompliance []int         `json:"monthly_compliance"`
	Energy            []float64     `json:"energy"`
	Achievements      []Achievement `json:"achievements"`
	DaysSinceStart    int           `json:"days_since_start"`
	TotalDoses        int           `json:"total_doses"`
}

// Summary computes the dashboard figures under a single read lock
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Summary{
		Date:               domain.DateKeyOf(l.clock(), l.loc),
		DosesToday:         l.countToday(),
		TargetPerDay:       domain.TargetPerDay(l.state.Schedules),
		Streak:             l.streak(),
		Weekly:             l.weekly(),
		AnsweredToday:      l.answeredToday(),
		ScheduleConfigured: l.configured(),
		Next:               l.nextDose(),
		Slots:              l.todaySlots(),
	}
}

// Progress computes compliance, energy and achievements under a single read lock
func (l *Ledger) Progress() Progress {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Progress{
		MonthlyCompliance: l.monthlyCompliance(),
		Energy:            l.energyTrend(),
		Achievements:      l.achievements(),
		DaysSinceStart:    l.daysSinceStart(),
		TotalDoses:        len(l.state.Doses),
	}
}

// MonthlyCompliance returns 4 weekly compliance percentages, oldest first.
// The newest week is the 7 days ending tonight at midnight.
func (l *Ledger) MonthlyCompliance() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.monthlyCompliance()
}

// EnergyTrend estimates an energy level (0-5) per compliance week
func (l *Ledger) EnergyTrend() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.energyTrend()
}

// SymptomTrend returns 6 weekly average ratings for symptomID, oldest first.
// Weeks without a rating repeat the previous value, starting from MinRating.
func (l *Ledger) SymptomTrend(symptomID int) []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trend := make([]float64, 0, symptomTrendWeeks)
	previous := float64(domain.MinRating)

	for _, week := range l.weekWindows(symptomTrendWeeks) {
		sum, n := 0, 0
		for _, e := range l.state.DailySymptomEntries {
			at := e.Time()
			if at.Before(week.start) || !at.Before(week.end) {
				continue
			}
			if rating, ok := e.Symptoms[symptomID]; ok {
				sum += rating
				n++
			}
		}
		if n > 0 {
			previous = round1(float64(sum) / float64(n))
		}
		trend = append(trend, previous)
	}
	return trend
}

// Achievements evaluates the milestones against current history
func (l *Ledger) Achievements() []Achievement {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.achievements()
}

// DaysSinceStart counts whole days since the earliest logged dose
func (l *Ledger) DaysSinceStart() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.daysSinceStart()
}

type window struct {
	start, end time.Time
}

// weekWindows returns n consecutive 7-day windows, oldest first, the last one
// ending at tomorrow's local midnight.
func (l *Ledger) weekWindows(n int) []window {
	end := domain.StartOfDay(l.clock(), l.loc).AddDate(0, 0, 1)

	windows := make([]window, n)
	for i := n - 1; i >= 0; i-- {
		start := end.AddDate(0, 0, -7)
		windows[i] = window{start: start, end: end}
		end = start
	}
	return windows
}

func (l *Ledger) monthlyCompliance() []int {
	out := make([]int, complianceWeeks)
	if len(l.state.Doses) == 0 {
		return out
	}

	expected := float64(domain.TargetPerDay(l.state.Schedules) * 7)
	for i, week := range l.weekWindows(complianceWeeks) {
		ratio := math.Min(float64(l.countBetween(week.start, week.end))/expected, 1)
		out[i] = int(math.Round(ratio * 100))
	}
	return out
}

func (l *Ledger) energyTrend() []float64 {
	out := make([]float64, complianceWeeks)
	if len(l.state.Doses) == 0 {
		return out
	}

	doseBonus := math.Min(float64(len(l.state.Doses))*doseBonusPerDose, maxDoseBonus)
	for i, compliance := range l.monthlyCompliance() {
		complianceBonus := float64(compliance) / 100 * maxComplianceBonus
		consistencyBonus := float64(i) * consistencyBonusPerWk
		out[i] = round1(math.Min(doseBonus+complianceBonus+consistencyBonus, maxEnergy))
	}
	return out
}

func (l *Ledger) achievements() []Achievement {
	streak := l.streak()
	compliance := l.monthlyCompliance()
	current := compliance[len(compliance)-1]

	firstDose := Achievement{
		ID:          1,
		Title:       "First Dose",
		Description: "You took your very first dose",
	}
	if first, ok := l.earliestDose(); ok {
		firstDose.Unlocked = true
		firstDose.AchievedAt = &first
	}

	weekStreak := Achievement{
		ID:          2,
		Title:       "One Week Streak",
		Description: "You've taken all doses for 7 consecutive days",
		Unlocked:    streak >= weekStreakGoal,
	}
	if !weekStreak.Unlocked {
		p := int(math.Round(float64(streak) / weekStreakGoal * 100))
		weekStreak.Progress = &p
	}

	allWeeks := true
	for _, c := range compliance {
		if c < consistencyMasterFloor {
			allWeeks = false
			break
		}
	}
	master := Achievement{
		ID:          3,
		Title:       "Consistency Master",
		Description: "Maintained 80% compliance for a month",
		Unlocked:    current >= consistencyMasterFloor && allWeeks,
	}
	if current < consistencyMasterFloor {
		p := current
		master.Progress = &p
	}

	return []Achievement{firstDose, weekStreak, master}
}

func (l *Ledger) daysSinceStart() int {
	first, ok := l.earliestDose()
	if !ok {
		return 0
	}
	days := int(l.clock().Sub(first) / (24 * time.Hour))
	return max(days, 0)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
