package store

import (
	"fmt"

	"github.com/tahcohcat/stride/internal/models"
)

// PutWeather caches weather for a date, replacing any previous value.
func (s *Store) PutWeather(w models.WeatherDay) error {
	if _, err := models.ParseDate(w.Date); err != nil {
		return &ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if !models.IsCondition(w.Condition) {
		return &ValidationError{Field: "condition", Message: "must be one of clear, clouds, rain, snow, storm, fog"}
	}
	if w.PrecipitationMM < 0 {
		return &ValidationError{Field: "precipitation_mm", Message: "must be >= 0"}
	}

	w.UpdatedAt = s.timestamp()
	query := `
		INSERT INTO weather_cache (date, condition, temp_max_c, precipitation_mm, updated_at)
		VALUES (:date, :condition, :temp_max_c, :precipitation_mm, :updated_at)
		ON CONFLICT(date) DO UPDATE SET
			condition = excluded.condition,
			temp_max_c = excluded.temp_max_c,
			precipitation_mm = excluded.precipitation_mm,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.NamedExec(query, w); err != nil {
		return fmt.Errorf("failed to save weather for %s: %w", w.Date, err)
	}

	s.notify(Change{Kind: ChangeWeather, Dates: []string{w.Date}})
	return nil
}

// Weather returns the cached weather keyed by date. Read failures yield an empty map.
func (s *Store) Weather() map[string]models.WeatherDay {
	var days []models.WeatherDay
	query := `SELECT date, condition, temp_max_c, precipitation_mm, updated_at FROM weather_cache`
	if err := s.db.Select(&days, query); err != nil {
		s.log.WithError(err).Error("Failed to read weather cache")
		return map[string]models.WeatherDay{}
	}

	out := make(map[string]models.WeatherDay, len(days))
	for _, d := range days {
		out[d.Date] = d
	}
	return out
}
