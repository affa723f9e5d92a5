package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/stride/internal/models"
)

// Export builds a full snapshot of the local store.
func (s *Store) Export() (*models.Snapshot, error) {
	profile, err := s.EnsureProfile()
	if err != nil {
		return nil, err
	}

	entries := s.GetAll()
	tracking := s.SyncTracking()

	snap := &models.Snapshot{
		Version:      models.SnapshotVersion,
		ExportDate:   s.timestamp(),
		UserProfile:  profile,
		StepsData:    entries,
		SyncTracking: &tracking,
		Metadata:     models.SnapshotMetadata{TotalEntries: len(entries)},
	}
	if len(entries) > 0 {
		snap.Metadata.DateRange = models.DateRange{
			Start: entries[0].FormattedDate,
			End:   entries[len(entries)-1].FormattedDate,
		}
	}
	return snap, nil
}

// Import applies an exported document. Overwrite replaces steps, profile and sync tracking;
// merge keeps, per date, whichever entry carries the later timestamp and leaves the profile alone.
func (s *Store) Import(data []byte, mode models.ImportMode) (*models.ImportResult, error) {
	if mode == "" {
		mode = models.ImportOverwrite
	}
	if mode != models.ImportOverwrite && mode != models.ImportMerge {
		return nil, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown import mode %q", mode)}
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if snap.StepsData == nil || snap.UserProfile == nil {
		return nil, fmt.Errorf("%w: stepsData and userProfile are required", ErrInvalidFormat)
	}

	result := &models.ImportResult{Mode: mode}
	var dates []string

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()
	if mode == models.ImportOverwrite {
		if _, err := tx.Exec(`DELETE FROM steps`); err != nil {
			return nil, fmt.Errorf("failed to clear steps: %w", err)
		}
		if err := writeState(tx, keyUserProfile, snap.UserProfile, now); err != nil {
			return nil, err
		}
		if snap.SyncTracking != nil {
			tracking := s.sanitizeTracking(*snap.SyncTracking)
			if err := writeState(tx, keySyncTracking, tracking, now); err != nil {
				return nil, err
			}
		}
	}

	for _, entry := range snap.StepsData {
		steps := entry.Steps
		if err := validateStep(&steps, entry.FormattedDate); err != nil {
			result.Rejected++
			continue
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = entry.CreatedAt
		}

		applied, added, err := importEntry(tx, entry, mode)
		if err != nil {
			return nil, err
		}
		switch {
		case added:
			result.Added++
		case applied:
			result.Updated++
		default:
			result.Skipped++
			continue
		}
		dates = append(dates, entry.FormattedDate)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	s.log.Info(fmt.Sprintf("Imported %s snapshot: %d added, %d updated, %d skipped, %d rejected",
		mode, result.Added, result.Updated, result.Skipped, result.Rejected))

	if mode == models.ImportOverwrite {
		s.notify(Change{Kind: ChangeProfile})
		s.notify(Change{Kind: ChangeSyncTracking})
	}
	s.notify(Change{Kind: ChangeSteps, Dates: dates})
	return result, nil
}

// sanitizeTracking nulls an imported lastSyncedDate that is unparseable or after today, so the
// next sync falls back to a full range instead of skipping the missing days.
func (s *Store) sanitizeTracking(t models.SyncTracking) models.SyncTracking {
	if t.LastSyncedDate == nil {
		return t
	}
	date := *t.LastSyncedDate
	if _, err := models.ParseDate(date); err != nil || date > s.today() {
		s.log.Warn(fmt.Sprintf("Ignoring imported lastSyncedDate %q", date))
		t.LastSyncedDate = nil
	}
	return t
}

// importEntry writes one entry. In merge mode an existing local entry survives unless the
// imported one is strictly newer.
func importEntry(tx *sqlx.Tx, entry models.StepEntry, mode models.ImportMode) (applied, added bool, err error) {
	local, err := getStep(tx, entry.FormattedDate)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, false, err
	}

	if local != nil {
		if mode == models.ImportMerge && !entry.Timestamp().After(local.Timestamp()) {
			return false, false, nil
		}
		query := `UPDATE steps SET steps = ?, created_at = ?, updated_at = ? WHERE formatted_date = ?`
		if _, err := tx.Exec(query, entry.Steps, entry.CreatedAt, entry.UpdatedAt, entry.FormattedDate); err != nil {
			return false, false, fmt.Errorf("failed to update %s: %w", entry.FormattedDate, err)
		}
		return true, false, nil
	}

	query := `INSERT INTO steps (formatted_date, steps, created_at, updated_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.Exec(query, entry.FormattedDate, entry.Steps, entry.CreatedAt, entry.UpdatedAt); err != nil {
		return false, false, fmt.Errorf("failed to insert %s: %w", entry.FormattedDate, err)
	}
	return true, true, nil
}
