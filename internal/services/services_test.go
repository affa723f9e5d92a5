package services

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/stride/internal/database"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/store"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) take() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	sent := r.sent
	r.sent = nil
	return sent
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return store.New(db, store.WithClock(func() time.Time {
		return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	}))
}

func addSteps(t *testing.T, s *store.Store, date string, steps int) {
	t.Helper()
	_, err := s.Add(models.StepInput{FormattedDate: date, Steps: &steps})
	require.NoError(t, err)
}
