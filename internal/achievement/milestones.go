// Package achievement derives milestones and badges from the step history. Everything here is
// pure: callers load the history and persist the results.
package achievement

import (
	"sort"

	"github.com/tahcohcat/stride/internal/models"
)

// Milestones is the ascending list of cumulative thresholds.
var Milestones = []models.Milestone{
	{Value: 50_000, Rarity: models.RarityCommon},
	{Value: 100_000, Rarity: models.RarityCommon},
	{Value: 250_000, Rarity: models.RarityCommon},
	{Value: 500_000, Rarity: models.RarityUncommon},
	{Value: 1_000_000, Rarity: models.RarityUncommon},
	{Value: 2_500_000, Rarity: models.RarityUncommon},
	{Value: 5_000_000, Rarity: models.RarityRare},
	{Value: 10_000_000, Rarity: models.RarityRare},
}

// MilestoneByValue looks up a milestone threshold.
func MilestoneByValue(value int) (models.Milestone, bool) {
	for _, m := range Milestones {
		if m.Value == value {
			return m, true
		}
	}
	return models.Milestone{}, false
}

// CrossedMilestones walks the history in date order keeping a running total, and attributes each
// threshold to the first day the total reached it. One day can cross several thresholds.
func CrossedMilestones(entries []models.StepEntry) []models.CrossedMilestone {
	sorted := sortedByDate(entries)

	crossed := []models.CrossedMilestone{}
	total, next := 0, 0
	for _, entry := range sorted {
		total += entry.Steps
		for next < len(Milestones) && total >= Milestones[next].Value {
			crossed = append(crossed, models.CrossedMilestone{Milestone: Milestones[next], Date: entry.FormattedDate})
			next++
		}
		if next == len(Milestones) {
			break
		}
	}
	return crossed
}

func sortedByDate(entries []models.StepEntry) []models.StepEntry {
	sorted := make([]models.StepEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FormattedDate < sorted[j].FormattedDate
	})
	return sorted
}
