package achievement

import (
	"time"

	"github.com/tahcohcat/stride/internal/models"
)

const (
	CategoryDistance    = "distance"
	CategoryConsistency = "consistency"
	CategoryExploration = "exploration"
	CategoryWeather     = "weather"
)

// Badge is a catalog entry. unlock returns the first date its condition held.
type Badge struct {
	ID          int    `json:"id"`
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`

	unlock func(h *history) (string, bool)
}

// history is the sorted step history plus weather, shared by every predicate.
type history struct {
	entries []models.StepEntry
	weather map[string]models.WeatherDay
}

var catalog = []Badge{
	{ID: 1, Icon: "👣", Name: "First Steps", Description: "Log your first steps", Category: CategoryDistance,
		unlock: firstDay(func(e models.StepEntry) bool { return e.Steps > 0 })},
	{ID: 2, Icon: "🏃", Name: "Marathon Runner", Description: "Walk 25,000 steps in a single day", Category: CategoryDistance,
		unlock: firstDay(func(e models.StepEntry) bool { return e.Steps >= 25_000 })},
	{ID: 3, Icon: "📅", Name: "Week Warrior", Description: "Walk 8,000 steps every day for a week", Category: CategoryConsistency,
		unlock: consecutiveDays(7, 8_000)},
	{ID: 4, Icon: "🏖️", Name: "Weekend Warrior", Description: "Walk 20,000 steps over a single weekend", Category: CategoryConsistency,
		unlock: weekendTotal(20_000)},
	{ID: 5, Icon: "🍂", Name: "Four Seasons", Description: "Walk in every season of the year", Category: CategoryExploration,
		unlock: allSeasons},
	{ID: 6, Icon: "🔟", Name: "10K Club", Description: "Walk 10,000 steps in a single day", Category: CategoryDistance,
		unlock: firstDay(func(e models.StepEntry) bool { return e.Steps >= 10_000 })},
	{ID: 7, Icon: "⛓️", Name: "Iron Streak", Description: "Walk 5,000 steps every day for 30 days", Category: CategoryConsistency,
		unlock: consecutiveDays(30, 5_000)},
	{ID: 8, Icon: "💯", Name: "Centurion", Description: "Log steps on 100 different days", Category: CategoryConsistency,
		unlock: activeDays(100)},
	{ID: 9, Icon: "☔", Name: "Puddle Jumper", Description: "Walk 5,000 steps on a rainy day", Category: CategoryWeather,
		unlock: weatherDay(5_000, models.WeatherDay.IsRainy)},
	{ID: 10, Icon: "🔥", Name: "Heat Seeker", Description: "Walk 10,000 steps on a day of 30°C or more", Category: CategoryWeather,
		unlock: weatherDay(10_000, func(w models.WeatherDay) bool { return w.TempMaxC >= 30 })},
	{ID: 11, Icon: "❄️", Name: "Snow Trekker", Description: "Walk 3,000 steps on a snowy day", Category: CategoryWeather,
		unlock: weatherDay(3_000, models.WeatherDay.IsSnowy)},
	{ID: 12, Icon: "💰", Name: "Millionaire", Description: "Walk 1,000,000 steps in total", Category: CategoryDistance,
		unlock: cumulative(1_000_000)},
}

// Catalog returns every badge ordered by id.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

func BadgeByID(id int) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

func firstDay(match func(models.StepEntry) bool) func(*history) (string, bool) {
	return func(h *history) (string, bool) {
		for _, e := range h.entries {
			if match(e) {
				return e.FormattedDate, true
			}
		}
		return "", false
	}
}

// consecutiveDays unlocks on the day a run of n adjacent calendar days each reaching atLeast completes.
// A missing day or a low day resets the run.
func consecutiveDays(n, atLeast int) func(*history) (string, bool) {
	return func(h *history) (string, bool) {
		run := 0
		var prev time.Time
		for _, e := range h.entries {
			d, err := models.ParseDate(e.FormattedDate)
			if err != nil {
				run = 0
				continue
			}
			switch {
			case e.Steps < atLeast:
				run = 0
			case run > 0 && d.Equal(prev.AddDate(0, 0, 1)):
				run++
			default:
				run = 1
			}
			prev = d
			if run >= n {
				return e.FormattedDate, true
			}
		}
		return "", false
	}
}

// weekendTotal pairs each Sunday with the Saturday directly before it.
func weekendTotal(atLeast int) func(*history) (string, bool) {
	return func(h *history) (string, bool) {
		var saturday time.Time
		satSteps := 0
		for _, e := range h.entries {
			d, err := models.ParseDate(e.FormattedDate)
			if err != nil {
				continue
			}
			switch d.Weekday() {
			case time.Saturday:
				saturday, satSteps = d, e.Steps
				if satSteps >= atLeast {
					return e.FormattedDate, true
				}
			case time.Sunday:
				total := e.Steps
				if !saturday.IsZero() && d.Equal(saturday.AddDate(0, 0, 1)) {
					total += satSteps
				}
				if total >= atLeast {
					return e.FormattedDate, true
				}
				saturday, satSteps = time.Time{}, 0
			default:
				saturday, satSteps = time.Time{}, 0
			}
		}
		return "", false
	}
}

// season maps a month to its meteorological season: DJF, MAM, JJA, SON.
func season(m time.Month) int {
	return int(m) % 12 / 3
}

func allSeasons(h *history) (string, bool) {
	seen := make(map[int]bool)
	for _, e := range h.entries {
		if e.Steps <= 0 {
			continue
		}
		d, err := models.ParseDate(e.FormattedDate)
		if err != nil {
			continue
		}
		seen[season(d.Month())] = true
		if len(seen) == 4 {
			return e.FormattedDate, true
		}
	}
	return "", false
}

func activeDays(n int) func(*history) (string, bool) {
	return func(h *history) (string, bool) {
		count := 0
		for _, e := range h.entries {
			if e.Steps <= 0 {
				continue
			}
			count++
			if count >= n {
				return e.FormattedDate, true
			}
		}
		return "", false
	}
}

func weatherDay(atLeast int, match func(models.WeatherDay) bool) func(*history) (string, bool) {
	return func(h *history) (string, bool) {
		for _, e := range h.entries {
			if e.Steps < atLeast {
				continue
			}
			if w, ok := h.weather[e.FormattedDate]; ok && match(w) {
				return e.FormattedDate, true
			}
		}
		return "", false
	}
}

func cumulative(atLeast int) func(*history) (string, bool) {
	return func(h *history) (string, bool) {
		total := 0
		for _, e := range h.entries {
			total += e.Steps
			if total >= atLeast {
				return e.FormattedDate, true
			}
		}
		return "", false
	}
}
