package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/schollz/closestmatch"

	"github.com/tahcohcat/stride/internal/achievement"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/store"
)

var (
	ErrBadgeNotFound = errors.New("badge not found")
	ErrBadgeLocked   = errors.New("badge not unlocked")
)

const maxUsernameLength = 32

type ProfileService struct {
	store *store.Store
}

func NewProfileService(s *store.Store) *ProfileService {
	return &ProfileService{store: s}
}

// Get returns the profile, creating it with defaults on first use.
func (s *ProfileService) Get() (*models.UserProfile, error) {
	return s.store.EnsureProfile()
}

// Update applies the non-nil fields of req.
func (s *ProfileService) Update(req models.ProfileUpdateRequest) (*models.UserProfile, error) {
	profile, err := s.store.EnsureProfile()
	if err != nil {
		return nil, err
	}

	if req.HeightCm != nil {
		if *req.HeightCm < 50 || *req.HeightCm > 272 {
			return nil, &store.ValidationError{Field: "height_cm", Message: "must be between 50 and 272"}
		}
		profile.HeightCm = *req.HeightCm
	}
	if req.WeightKg != nil {
		if *req.WeightKg < 20 || *req.WeightKg > 500 {
			return nil, &store.ValidationError{Field: "weight_kg", Message: "must be between 20 and 500"}
		}
		profile.WeightKg = *req.WeightKg
	}
	if req.Gender != nil {
		profile.Gender = strings.TrimSpace(*req.Gender)
	}
	if req.EnableWeather != nil {
		profile.EnableWeather = *req.EnableWeather
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name == "" {
			return nil, &store.ValidationError{Field: "username", Message: "is required"}
		}
		if len(name) > maxUsernameLength {
			return nil, &store.ValidationError{Field: "username", Message: "is too long"}
		}
		profile.Username = name
	}

	if err := s.store.SaveProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SelectBadge sets the badge shown next to the username. ref is a badge id or a name, matched
// loosely against unlocked badges only. An empty ref clears the selection.
func (s *ProfileService) SelectBadge(ref string) (*models.UserProfile, error) {
	profile, err := s.store.EnsureProfile()
	if err != nil {
		return nil, err
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		profile.SelectedBadge = nil
	} else {
		id, err := s.resolveBadge(ref)
		if err != nil {
			return nil, err
		}
		profile.SelectedBadge = &id
	}

	if err := s.store.SaveProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) resolveBadge(ref string) (int, error) {
	unlocked := make(map[int]bool)
	for _, b := range s.store.UnlockedBadges() {
		unlocked[b.ID] = true
	}

	if id, err := strconv.Atoi(ref); err == nil {
		if _, ok := achievement.BadgeByID(id); !ok {
			return 0, ErrBadgeNotFound
		}
		if !unlocked[id] {
			return 0, ErrBadgeLocked
		}
		return id, nil
	}

	byName := make(map[string]int)
	names := []string{}
	for _, b := range achievement.Catalog() {
		if unlocked[b.ID] {
			key := strings.ToLower(b.Name)
			byName[key] = b.ID
			names = append(names, key)
		}
	}
	if len(names) == 0 {
		return 0, ErrBadgeLocked
	}

	match := closestmatch.New(names, []int{2}).Closest(strings.ToLower(ref))
	id, ok := byName[match]
	if !ok {
		return 0, ErrBadgeNotFound
	}
	return id, nil
}
