// Package stats summarizes the step history for dashboards.
package stats

import (
	"sort"
	"time"

	"github.com/tahcohcat/stride/internal/models"
)

// Summary is computed over logged days, i.e. days with steps > 0.
type Summary struct {
	TotalSteps    int                `json:"totalSteps"`
	DaysLogged    int                `json:"daysLogged"`
	AveragePerDay int                `json:"averagePerDay"`
	BestDay       *models.DailySteps `json:"bestDay,omitempty"`
	CurrentStreak int                `json:"currentStreak"`
	LongestStreak int                `json:"longestStreak"`
	WeekSteps     int                `json:"weekSteps"`
	MonthSteps    int                `json:"monthSteps"`
}

// Summarize builds a Summary. today is the local calendar date (YYYY-MM-DD). The current streak
// counts back from today, or from yesterday while today has nothing yet. The week starts on Monday.
func Summarize(entries []models.StepEntry, today string) Summary {
	var s Summary

	todayDate, err := models.ParseDate(today)
	if err != nil {
		return s
	}
	weekStart := todayDate.AddDate(0, 0, -((int(todayDate.Weekday()) + 6) % 7))
	monthStart := time.Date(todayDate.Year(), todayDate.Month(), 1, 0, 0, 0, 0, time.UTC)

	active := make(map[string]bool)
	var dates []time.Time
	for _, e := range entries {
		if e.Steps <= 0 {
			continue
		}
		d, err := models.ParseDate(e.FormattedDate)
		if err != nil {
			continue
		}

		s.TotalSteps += e.Steps
		s.DaysLogged++
		if s.BestDay == nil || e.Steps > s.BestDay.Steps {
			s.BestDay = &models.DailySteps{Steps: e.Steps, FormattedDate: e.FormattedDate}
		}
		if !d.Before(weekStart) && !d.After(todayDate) {
			s.WeekSteps += e.Steps
		}
		if !d.Before(monthStart) && !d.After(todayDate) {
			s.MonthSteps += e.Steps
		}

		if !active[e.FormattedDate] {
			active[e.FormattedDate] = true
			dates = append(dates, d)
		}
	}

	if s.DaysLogged > 0 {
		s.AveragePerDay = s.TotalSteps / s.DaysLogged
	}

	s.LongestStreak = longestStreak(dates)
	s.CurrentStreak = currentStreak(active, todayDate)
	return s
}

func longestStreak(dates []time.Time) int {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	longest, run := 0, 0
	for i, d := range dates {
		if i > 0 && d.Equal(dates[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func currentStreak(active map[string]bool, today time.Time) int {
	d := today
	if !active[models.FormatDate(d)] {
		d = d.AddDate(0, 0, -1)
	}

	streak := 0
	for active[models.FormatDate(d)] {
		streak++
		d = d.AddDate(0, 0, -1)
	}
	return streak
}
