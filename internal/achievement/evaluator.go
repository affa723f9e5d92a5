package achievement

import "github.com/tahcohcat/stride/internal/models"

// Result is everything the history has earned so far.
type Result struct {
	Milestones []models.CrossedMilestone `json:"milestones"`
	Badges     []models.UnlockedBadge    `json:"badges"`
}

// Evaluate recomputes milestones and badges from scratch. weather may be nil.
func Evaluate(entries []models.StepEntry, weather map[string]models.WeatherDay) Result {
	h := &history{entries: sortedByDate(entries), weather: weather}

	badges := []models.UnlockedBadge{}
	for _, b := range catalog {
		if date, ok := b.unlock(h); ok {
			badges = append(badges, models.UnlockedBadge{ID: b.ID, UnlockDate: date})
		}
	}

	return Result{
		Milestones: CrossedMilestones(h.entries),
		Badges:     badges,
	}
}
