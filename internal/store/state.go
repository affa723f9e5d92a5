package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/stride/internal/models"
)

const (
	keyUserProfile         = "user_profile"
	keySyncTracking        = "sync_tracking"
	keyUnlockedBadges      = "unlocked_badges"
	keyUnwrappedMilestones = "unwrapped_milestones"
	keyDismissedMilestones = "dismissed_milestones"
)

// readState decodes a JSON value. Missing keys, read failures and corrupt values all report
// found=false; the latter two are logged.
func (s *Store) readState(key string, dst any) bool {
	var raw string
	err := s.db.Get(&raw, `SELECT value FROM app_state WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	} else if err != nil {
		s.log.WithError(err).Error(fmt.Sprintf("Failed to read %s", key))
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.WithError(err).Warn(fmt.Sprintf("Corrupt value under %s, using default", key))
		return false
	}
	return true
}

func writeState(e sqlx.Execer, key string, v any, now time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	query := `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := e.Exec(query, key, string(data), now); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Profile returns the stored profile, or nil if none has been created.
func (s *Store) Profile() *models.UserProfile {
	var p models.UserProfile
	if !s.readState(keyUserProfile, &p) {
		return nil
	}
	return &p
}

// EnsureProfile returns the profile, creating one with defaults on first launch.
func (s *Store) EnsureProfile() (*models.UserProfile, error) {
	if p := s.Profile(); p != nil {
		return p, nil
	}

	p := DefaultProfile(s.timestamp())
	if err := s.SaveProfile(p); err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Created profile for user %s", p.UserID))
	return p, nil
}

// DefaultProfile builds a first-launch profile with a random 6-digit user id.
func DefaultProfile(now time.Time) *models.UserProfile {
	id := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
	return &models.UserProfile{
		HeightCm:    170,
		WeightKg:    70,
		UserID:      id,
		Username:    "Walker" + id,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// SaveProfile overwrites the profile and stamps lastUpdated.
func (s *Store) SaveProfile(p *models.UserProfile) error {
	p.LastUpdated = s.timestamp()
	if err := writeState(s.db, keyUserProfile, p, p.LastUpdated); err != nil {
		return err
	}
	s.notify(Change{Kind: ChangeProfile})
	return nil
}

// SyncTracking returns the watermark; both fields are nil before the first sync.
func (s *Store) SyncTracking() models.SyncTracking {
	var t models.SyncTracking
	s.readState(keySyncTracking, &t)
	return t
}

// UpdateSyncTracking overwrites both watermark fields. An empty date stores null;
// a nil time means now.
func (s *Store) UpdateSyncTracking(date string, at *time.Time) error {
	now := s.timestamp()
	if at == nil {
		at = &now
	}
	utc := at.UTC()

	t := models.SyncTracking{LastSyncedTime: &utc}
	if date != "" {
		t.LastSyncedDate = &date
	}

	if err := writeState(s.db, keySyncTracking, t, now); err != nil {
		return err
	}
	s.notify(Change{Kind: ChangeSyncTracking})
	return nil
}

func (s *Store) UnlockedBadges() []models.UnlockedBadge {
	badges := []models.UnlockedBadge{}
	if !s.readState(keyUnlockedBadges, &badges) || badges == nil {
		return []models.UnlockedBadge{}
	}
	return badges
}

func (s *Store) SetUnlockedBadges(badges []models.UnlockedBadge) error {
	return s.writeFlag(keyUnlockedBadges, badges)
}

func (s *Store) UnwrappedMilestones() []int {
	return s.readInts(keyUnwrappedMilestones)
}

func (s *Store) SetUnwrappedMilestones(values []int) error {
	return s.writeFlag(keyUnwrappedMilestones, values)
}

func (s *Store) DismissedMilestones() []int {
	return s.readInts(keyDismissedMilestones)
}

func (s *Store) SetDismissedMilestones(values []int) error {
	return s.writeFlag(keyDismissedMilestones, values)
}

func (s *Store) readInts(key string) []int {
	values := []int{}
	if !s.readState(key, &values) || values == nil {
		return []int{}
	}
	return values
}

func (s *Store) writeFlag(key string, v any) error {
	if err := writeState(s.db, key, v, s.timestamp()); err != nil {
		return err
	}
	s.notify(Change{Kind: ChangeAchievements})
	return nil
}
