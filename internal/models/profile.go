package models

import "time"

// UserProfile holds the single installation's settings.
type UserProfile struct {
	HeightCm               float64   `json:"height_cm"`
	WeightKg               float64   `json:"weight_kg"`
	Gender                 string    `json:"gender"`
	EnableWeather          bool      `json:"enableWeather"`
	UserID                 string    `json:"userId"`
	Username               string    `json:"username"`
	SelectedBadge          *int      `json:"selectedBadge"`
	HasCompletedFirstEntry bool      `json:"hasCompletedFirstEntry"`
	CreatedAt              time.Time `json:"createdAt"`
	LastUpdated            time.Time `json:"lastUpdated"`
}

// ProfileUpdateRequest carries the user-editable settings. Nil fields are left unchanged.
type ProfileUpdateRequest struct {
	HeightCm      *float64 `json:"height_cm"`
	WeightKg      *float64 `json:"weight_kg"`
	Gender        *string  `json:"gender"`
	EnableWeather *bool    `json:"enableWeather"`
	Username      *string  `json:"username"`
}
