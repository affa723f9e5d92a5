// Package stepsync reconciles the local step history with the health platform.
package stepsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tahcohcat/stride/internal/health"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/store"
)

const (
	stageInit   = "initialize"
	stageRange  = "range"
	stageToday  = "today"
	stageCommit = "commit"
)

// Range is the window a range sync covers, inclusive on both ends.
type Range struct {
	Needed bool   `json:"needed"`
	Start  string `json:"startDate,omitempty"`
	End    string `json:"endDate,omitempty"`
}

// RangeFor computes the missing window for a watermark. Today is now's calendar date in now's
// location. A null or unreadable watermark starts at the first of the current month.
func RangeFor(tracking models.SyncTracking, now time.Time) Range {
	today := models.FormatDate(now)

	if tracking.LastSyncedDate == nil {
		return Range{Needed: true, Start: models.FormatDate(models.StartOfMonth(now, now.Location())), End: today}
	}

	last := *tracking.LastSyncedDate
	if _, err := models.ParseDate(last); err != nil {
		return Range{Needed: true, Start: models.FormatDate(models.StartOfMonth(now, now.Location())), End: today}
	}
	if last >= today {
		return Range{}
	}

	start, _ := models.AddDays(last, 1)
	return Range{Needed: true, Start: start, End: today}
}

// Status is the engine's view for status endpoints.
type Status struct {
	Platform    string              `json:"platform"`
	Initialized bool                `json:"initialized"`
	Tracking    models.SyncTracking `json:"syncTracking"`
	LastResult  *models.SyncResult  `json:"lastResult,omitempty"`
}

type Engine struct {
	store   *store.Store
	adapter *health.Adapter
	loc     *time.Location
	now     func() time.Time
	log     *logger.Log

	mu          sync.Mutex
	startupDone bool
	last        *models.SyncResult
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(s *store.Store, adapter *health.Adapter, loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		store:   s,
		adapter: adapter,
		loc:     loc,
		now:     time.Now,
		log:     logger.Named("sync"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync runs one full reconciliation. Runs never overlap.
func (e *Engine) Sync(ctx context.Context) models.SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run(ctx)
}

// SyncOnStartup runs the first sync of this engine's lifetime. Later calls return ran=false
// without syncing.
func (e *Engine) SyncOnStartup(ctx context.Context) (result models.SyncResult, ran bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.startupDone {
		return models.SyncResult{}, false
	}
	e.startupDone = true
	return e.run(ctx), true
}

// RequestPermissions asks the platform for access again; the next sync re-checks it.
func (e *Engine) RequestPermissions(ctx context.Context) error {
	return e.adapter.RequestPermissions(ctx)
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()

	return Status{
		Platform:    e.adapter.PlatformName(),
		Initialized: e.adapter.Initialized(),
		Tracking:    e.store.SyncTracking(),
		LastResult:  last,
	}
}

func (e *Engine) run(ctx context.Context) models.SyncResult {
	res := models.SyncResult{
		RunID:  uuid.New().String(),
		Errors: []models.SyncError{},
	}
	defer func() {
		r := res
		e.last = &r
	}()

	if err := e.adapter.Initialize(ctx); err != nil {
		e.log.WithError(err).Debug(fmt.Sprintf("Sync %s skipped, %s not ready", res.RunID, e.adapter.PlatformName()))
		res.Error = err.Error()
		return res
	}
	res.HealthConnectAvailable = true

	now := e.now().In(e.loc)
	today := models.FormatDate(now)
	tracking := e.store.SyncTracking()
	synced := make(map[string]bool)

	if r := RangeFor(tracking, now); r.Needed {
		res.StartDate, res.EndDate = r.Start, r.End
		if e.syncRange(ctx, r, now, synced, &res) {
			res.RangeSynced = true
			if err := e.store.UpdateSyncTracking(today, tracking.LastSyncedTime); err != nil {
				res.Errors = append(res.Errors, models.SyncError{Stage: stageRange, Message: err.Error()})
			}
		}
	}

	e.syncToday(ctx, now, synced, &res)
	res.DaysSynced = len(synced)

	if res.DaysSynced > 0 || len(res.Errors) == 0 {
		if err := e.store.UpdateSyncTracking(today, &now); err != nil {
			e.log.WithError(err).Error("Failed to commit sync watermark")
			res.Errors = append(res.Errors, models.SyncError{Stage: stageCommit, Message: err.Error()})
		} else {
			res.Success = true
		}
	}

	if len(res.Errors) > 0 {
		res.Error = res.Errors[0].Message
		e.log.Warn(fmt.Sprintf("Sync %s finished with %d errors, %d days synced", res.RunID, len(res.Errors), res.DaysSynced))
	} else {
		e.log.Info(fmt.Sprintf("Sync %s synced %d days", res.RunID, res.DaysSynced))
	}
	return res
}

// syncRange reports whether the range query completed. Per-day write failures are recorded
// and do not abort the remaining days.
func (e *Engine) syncRange(ctx context.Context, r Range, now time.Time, synced map[string]bool, res *models.SyncResult) bool {
	start, err := time.ParseInLocation(models.DateLayout, r.Start, e.loc)
	if err != nil {
		res.Errors = append(res.Errors, models.SyncError{Stage: stageRange, Message: err.Error()})
		return false
	}

	qr := e.adapter.QueryRange(ctx, start, now)
	if !qr.Success {
		res.Errors = append(res.Errors, models.SyncError{Stage: stageRange, Message: errorText(qr.Error)})
		return false
	}

	for _, day := range qr.Days {
		if day.FormattedDate < r.Start || day.FormattedDate > r.End {
			continue
		}
		if _, err := e.store.SetSteps(day.FormattedDate, day.Steps); err != nil {
			res.Errors = append(res.Errors, models.SyncError{Date: day.FormattedDate, Stage: stageRange, Message: err.Error()})
			continue
		}
		synced[day.FormattedDate] = true
	}
	return true
}

func (e *Engine) syncToday(ctx context.Context, now time.Time, synced map[string]bool, res *models.SyncResult) {
	today := models.FormatDate(now)

	qr := e.adapter.QueryRange(ctx, models.StartOfDay(now, e.loc), now)
	if !qr.Success {
		res.Errors = append(res.Errors, models.SyncError{Date: today, Stage: stageToday, Message: errorText(qr.Error)})
		return
	}

	for _, day := range qr.Days {
		if day.FormattedDate != today {
			continue
		}
		if _, err := e.store.SetSteps(today, day.Steps); err != nil {
			res.Errors = append(res.Errors, models.SyncError{Date: today, Stage: stageToday, Message: err.Error()})
			return
		}
		steps := day.Steps
		res.TodaySteps = &steps
		synced[today] = true
	}
}

func errorText(err error) string {
	if err == nil {
		return "query failed"
	}
	return err.Error()
}
