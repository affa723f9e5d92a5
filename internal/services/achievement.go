package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tahcohcat/stride/internal/achievement"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/store"
)

var (
	ErrUnknownMilestone = errors.New("unknown milestone")
	ErrMilestoneLocked  = errors.New("milestone not reached yet")
)

// Notifier delivers achievement notifications to connected clients.
type Notifier interface {
	Notify(n models.Notification)
}

// RefreshResult lists what a refresh found.
type RefreshResult struct {
	NewBadges     []models.UnlockedBadge    `json:"newBadges"`
	NewMilestones []models.CrossedMilestone `json:"newMilestones"`
	Pending       []models.CrossedMilestone `json:"pending"`
}

// Overview is the achievements screen: the whole catalog and every milestone with its state.
type Overview struct {
	TotalSteps int                    `json:"totalSteps"`
	Badges     []models.BadgeView     `json:"badges"`
	Milestones []models.MilestoneView `json:"milestones"`
}

type AchievementService struct {
	store    *store.Store
	notifier Notifier
	now      func() time.Time
	log      *logger.Log

	mu      sync.Mutex
	pending map[int]bool
}

func NewAchievementService(s *store.Store, notifier Notifier) *AchievementService {
	return &AchievementService{
		store:    s,
		notifier: notifier,
		now:      time.Now,
		log:      logger.Named("achievements"),
		pending:  make(map[int]bool),
	}
}

// Start refreshes once and then after every step or weather change. The returned func stops it.
func (s *AchievementService) Start() func() {
	if _, err := s.Refresh(); err != nil {
		s.log.WithError(err).Warn("Initial achievement refresh failed")
	}

	return s.store.Subscribe(func(c store.Change) {
		if c.Kind != store.ChangeSteps && c.Kind != store.ChangeWeather {
			return
		}
		if _, err := s.Refresh(); err != nil {
			s.log.WithError(err).Warn("Achievement refresh failed")
		}
	})
}

// Refresh re-evaluates the history. Newly earned badges are persisted alongside the ones already
// stored, which keep their original unlock dates even if the history that earned them is gone.
// Milestones that became pending since the previous refresh are announced.
func (s *AchievementService) Refresh() (*RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := achievement.Evaluate(s.store.GetAll(), s.store.Weather())

	stored := s.store.UnlockedBadges()
	known := make(map[int]bool, len(stored))
	for _, b := range stored {
		known[b.ID] = true
	}

	newBadges := []models.UnlockedBadge{}
	for _, b := range result.Badges {
		if !known[b.ID] {
			newBadges = append(newBadges, b)
		}
	}

	if len(newBadges) > 0 {
		union := append(stored, newBadges...)
		sort.Slice(union, func(i, j int) bool { return union[i].ID < union[j].ID })
		if err := s.store.SetUnlockedBadges(union); err != nil {
			return nil, fmt.Errorf("failed to save unlocked badges: %w", err)
		}
	}

	pending := s.pendingMilestones(result.Milestones)
	newMilestones := []models.CrossedMilestone{}
	current := make(map[int]bool, len(pending))
	for _, m := range pending {
		current[m.Value] = true
		if !s.pending[m.Value] {
			newMilestones = append(newMilestones, m)
		}
	}
	s.pending = current

	for _, b := range newBadges {
		s.log.Success(fmt.Sprintf("Badge %d unlocked on %s", b.ID, b.UnlockDate))
		s.notify(s.badgeNotification(b))
	}
	for _, m := range newMilestones {
		s.log.Success(fmt.Sprintf("Milestone %d reached on %s", m.Value, m.Date))
		s.notify(s.milestoneNotification(m))
	}

	return &RefreshResult{NewBadges: newBadges, NewMilestones: newMilestones, Pending: pending}, nil
}

// pendingMilestones is crossed minus unwrapped minus dismissed.
func (s *AchievementService) pendingMilestones(crossed []models.CrossedMilestone) []models.CrossedMilestone {
	hidden := make(map[int]bool)
	for _, v := range s.store.UnwrappedMilestones() {
		hidden[v] = true
	}
	for _, v := range s.store.DismissedMilestones() {
		hidden[v] = true
	}

	pending := []models.CrossedMilestone{}
	for _, m := range crossed {
		if !hidden[m.Value] {
			pending = append(pending, m)
		}
	}
	return pending
}

// Notifications returns a notification for every pending milestone.
func (s *AchievementService) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	crossed := achievement.CrossedMilestones(s.store.GetAll())
	notifications := []models.Notification{}
	for _, m := range s.pendingMilestones(crossed) {
		notifications = append(notifications, s.milestoneNotification(m))
	}
	return notifications
}

// DismissMilestone hides a milestone's notification without revealing it.
func (s *AchievementService) DismissMilestone(value int) error {
	if _, ok := achievement.MilestoneByValue(value); !ok {
		return ErrUnknownMilestone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetDismissedMilestones(addValue(s.store.DismissedMilestones(), value)); err != nil {
		return err
	}
	delete(s.pending, value)
	return nil
}

// UnwrapMilestone reveals a reached milestone. It cannot be undone.
func (s *AchievementService) UnwrapMilestone(value int) error {
	if _, ok := achievement.MilestoneByValue(value); !ok {
		return ErrUnknownMilestone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reached := false
	for _, m := range achievement.CrossedMilestones(s.store.GetAll()) {
		if m.Value == value {
			reached = true
			break
		}
	}
	if !reached {
		return ErrMilestoneLocked
	}

	if err := s.store.SetUnwrappedMilestones(addValue(s.store.UnwrappedMilestones(), value)); err != nil {
		return err
	}
	delete(s.pending, value)
	return nil
}

// Overview joins the catalog and milestone list with the stored state.
func (s *AchievementService) Overview() Overview {
	entries := s.store.GetAll()

	total := 0
	for _, e := range entries {
		total += e.Steps
	}

	unlocked := make(map[int]string)
	for _, b := range s.store.UnlockedBadges() {
		unlocked[b.ID] = b.UnlockDate
	}

	badges := make([]models.BadgeView, 0, len(achievement.Catalog()))
	for _, b := range achievement.Catalog() {
		date, ok := unlocked[b.ID]
		badges = append(badges, models.BadgeView{
			ID:          b.ID,
			Icon:        b.Icon,
			Name:        b.Name,
			Description: b.Description,
			Category:    b.Category,
			Unlocked:    ok,
			UnlockDate:  date,
		})
	}

	crossed := make(map[int]string)
	for _, m := range achievement.CrossedMilestones(entries) {
		crossed[m.Value] = m.Date
	}
	unwrapped := toSet(s.store.UnwrappedMilestones())
	dismissed := toSet(s.store.DismissedMilestones())

	milestones := make([]models.MilestoneView, 0, len(achievement.Milestones))
	for _, m := range achievement.Milestones {
		date, ok := crossed[m.Value]
		milestones = append(milestones, models.MilestoneView{
			Milestone: m,
			Crossed:   ok,
			Date:      date,
			Unwrapped: unwrapped[m.Value],
			Dismissed: dismissed[m.Value],
		})
	}

	return Overview{TotalSteps: total, Badges: badges, Milestones: milestones}
}

func (s *AchievementService) notify(n models.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(n)
}

func (s *AchievementService) badgeNotification(b models.UnlockedBadge) models.Notification {
	n := models.Notification{
		Kind:      models.NotificationBadge,
		BadgeID:   b.ID,
		Date:      b.UnlockDate,
		Haptic:    true,
		CreatedAt: s.now().UTC(),
	}
	if badge, ok := achievement.BadgeByID(b.ID); ok {
		n.Title = fmt.Sprintf("Badge unlocked: %s", badge.Name)
		n.Message = badge.Description
		n.Icon = badge.Icon
	}
	return n
}

func (s *AchievementService) milestoneNotification(m models.CrossedMilestone) models.Notification {
	milestone := m.Milestone
	return models.Notification{
		Kind:      models.NotificationMilestone,
		Title:     "Milestone reached!",
		Message:   fmt.Sprintf("You have walked %d steps. Unwrap your %s reward.", m.Value, m.Rarity),
		Icon:      "🎁",
		Milestone: &milestone,
		Date:      m.Date,
		Haptic:    true,
		CreatedAt: s.now().UTC(),
	}
}

func addValue(values []int, v int) []int {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	values = append(values, v)
	sort.Ints(values)
	return values
}

func toSet(values []int) map[int]bool {
	set := make(map[int]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
