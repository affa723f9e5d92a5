// Package store is the local-first persistence layer: step history, the user profile,
// the sync watermark and achievement flags, all in the local sqlite database.
package store

import (
	"sync"
	"time"

	"github.com/tahcohcat/stride/internal/database"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
)

type ChangeKind string

const (
	ChangeSteps        ChangeKind = "steps"
	ChangeProfile      ChangeKind = "profile"
	ChangeSyncTracking ChangeKind = "sync_tracking"
	ChangeAchievements ChangeKind = "achievements"
	ChangeWeather      ChangeKind = "weather"
)

// Change describes a committed mutation. Dates lists the affected calendar dates, if any.
type Change struct {
	Kind  ChangeKind
	Dates []string
}

// Listener is called synchronously after a mutation commits.
type Listener func(Change)

type Store struct {
	db  *database.DB
	log *logger.Log
	now func() time.Time
	loc *time.Location

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

type Option func(*Store)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone that defines today's local date. The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func New(db *database.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		log:       logger.Named("store"),
		now:       time.Now,
		loc:       time.Local,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) today() string {
	return models.FormatDate(s.now().In(s.loc))
}

// Subscribe registers a listener and returns the function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(c)
	}
}
