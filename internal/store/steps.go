package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/stride/internal/models"
)

const upsertStepQuery = `
	INSERT INTO steps (formatted_date, steps, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(formatted_date) DO UPDATE SET
		steps = excluded.steps,
		updated_at = excluded.updated_at
`

func validateStep(steps *int, date string) error {
	if date == "" {
		return &ValidationError{Field: "formatted_date", Message: "is required"}
	}
	if _, err := models.ParseDate(date); err != nil {
		return &ValidationError{Field: "formatted_date", Message: "must be YYYY-MM-DD"}
	}
	if steps == nil {
		return &ValidationError{Field: "steps", Message: "is required"}
	}
	if *steps < 0 {
		return &ValidationError{Field: "steps", Message: "must be non-negative"}
	}
	return nil
}

// GetAll returns every entry ascending by date. Read failures are logged and yield an empty slice.
func (s *Store) GetAll() []models.StepEntry {
	entries := []models.StepEntry{}
	query := `SELECT formatted_date, steps, created_at, updated_at FROM steps ORDER BY formatted_date ASC`
	if err := s.db.Select(&entries, query); err != nil {
		s.log.WithError(err).Error("Failed to read step history")
		return []models.StepEntry{}
	}
	return entries
}

// Range returns entries with start <= date <= end, ascending.
func (s *Store) Range(start, end string) ([]models.StepEntry, error) {
	entries := []models.StepEntry{}
	query := `
		SELECT formatted_date, steps, created_at, updated_at FROM steps
		WHERE formatted_date >= ? AND formatted_date <= ?
		ORDER BY formatted_date ASC
	`
	if err := s.db.Select(&entries, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to read steps range: %w", err)
	}
	return entries, nil
}

// Get returns the entry for a date or ErrNotFound.
func (s *Store) Get(date string) (*models.StepEntry, error) {
	return getStep(s.db, date)
}

func getStep(q sqlx.Queryer, date string) (*models.StepEntry, error) {
	var entry models.StepEntry
	query := `SELECT formatted_date, steps, created_at, updated_at FROM steps WHERE formatted_date = ?`
	err := sqlx.Get(q, &entry, query, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get steps for %s: %w", date, err)
	}
	return &entry, nil
}

// Add validates and upserts a manual entry. A second write for the same date replaces
// steps and updated_at and keeps created_at.
func (s *Store) Add(in models.StepInput) (*models.StepEntry, error) {
	if err := validateStep(in.Steps, in.FormattedDate); err != nil {
		return nil, err
	}

	now := s.timestamp()
	if _, err := s.db.Exec(upsertStepQuery, in.FormattedDate, *in.Steps, now, now); err != nil {
		return nil, fmt.Errorf("failed to save steps: %w", err)
	}

	entry, err := s.Get(in.FormattedDate)
	if err != nil {
		return nil, err
	}

	s.markFirstEntry()
	s.notify(Change{Kind: ChangeSteps, Dates: []string{in.FormattedDate}})
	return entry, nil
}

// SetSteps upserts a synced day, skipping the write when the stored count already matches.
// It reports whether anything changed.
func (s *Store) SetSteps(date string, steps int) (bool, error) {
	if err := validateStep(&steps, date); err != nil {
		return false, err
	}

	existing, err := s.Get(date)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if existing != nil && existing.Steps == steps {
		return false, nil
	}

	now := s.timestamp()
	if _, err := s.db.Exec(upsertStepQuery, date, steps, now, now); err != nil {
		return false, fmt.Errorf("failed to save steps for %s: %w", date, err)
	}

	s.notify(Change{Kind: ChangeSteps, Dates: []string{date}})
	return true, nil
}

// Delete removes the entry for a date. Deleting a missing date returns ErrNotFound.
func (s *Store) Delete(date string) error {
	res, err := s.db.Exec(`DELETE FROM steps WHERE formatted_date = ?`, date)
	if err != nil {
		return fmt.Errorf("failed to delete steps for %s: %w", date, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	s.notify(Change{Kind: ChangeSteps, Dates: []string{date}})
	return nil
}

func (s *Store) markFirstEntry() {
	profile, err := s.EnsureProfile()
	if err != nil {
		s.log.WithError(err).Warn("Failed to load profile for first entry flag")
		return
	}
	if profile.HasCompletedFirstEntry {
		return
	}
	profile.HasCompletedFirstEntry = true
	if err := s.SaveProfile(profile); err != nil {
		s.log.WithError(err).Warn("Failed to record first entry")
	}
}
