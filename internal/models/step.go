package models

import "time"

// StepEntry is one day's step count. FormattedDate is unique per store.
type StepEntry struct {
	Steps         int       `json:"steps" db:"steps"`
	FormattedDate string    `json:"formatted_date" db:"formatted_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Timestamp is the instant used to resolve merge conflicts: updated_at, or created_at when unset.
func (e StepEntry) Timestamp() time.Time {
	if !e.UpdatedAt.IsZero() {
		return e.UpdatedAt
	}
	return e.CreatedAt
}

// StepInput is an unvalidated write request. Nil Steps means the field was absent.
type StepInput struct {
	Steps         *int   `json:"steps"`
	FormattedDate string `json:"formatted_date"`
}

// DailySteps is the canonical record produced from health-platform responses.
type DailySteps struct {
	Steps         int    `json:"steps"`
	FormattedDate string `json:"formatted_date"`
}
