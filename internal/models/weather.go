package models

import "time"

const (
	WeatherClear  = "clear"
	WeatherClouds = "clouds"
	WeatherRain   = "rain"
	WeatherSnow   = "snow"
	WeatherStorm  = "storm"
	WeatherFog    = "fog"
)

// IsCondition reports whether c is a known weather condition.
func IsCondition(c string) bool {
	switch c {
	case WeatherClear, WeatherClouds, WeatherRain, WeatherSnow, WeatherStorm, WeatherFog:
		return true
	}
	return false
}

// WeatherDay is cached weather for one calendar date.
type WeatherDay struct {
	Date            string    `json:"date" db:"date"`
	Condition       string    `json:"condition" db:"condition"`
	TempMaxC        float64   `json:"temp_max_c" db:"temp_max_c"`
	PrecipitationMM float64   `json:"precipitation_mm" db:"precipitation_mm"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsRainy reports rain or storm conditions, or measurable precipitation on a non-snow day.
func (w WeatherDay) IsRainy() bool {
	switch w.Condition {
	case WeatherRain, WeatherStorm:
		return true
	case WeatherSnow:
		return false
	}
	return w.PrecipitationMM >= 1
}

func (w WeatherDay) IsSnowy() bool {
	return w.Condition == WeatherSnow
}
