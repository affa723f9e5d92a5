package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
)

// QueryResult is the structured outcome of a range query. Failures never escape as panics
// or bare errors; callers check Success.
type QueryResult struct {
	Success bool                `json:"success"`
	Days    []models.DailySteps `json:"days,omitempty"`
	Raw     json.RawMessage     `json:"-"`
	Error   error               `json:"-"`
}

// Adapter wraps a Platform with an idempotent pre-flight check and response normalization.
type Adapter struct {
	platform Platform
	loc      *time.Location
	log      *logger.Log

	mu          sync.Mutex
	initialized bool
}

func NewAdapter(platform Platform, loc *time.Location) *Adapter {
	if loc == nil {
		loc = time.Local
	}
	return &Adapter{
		platform: platform,
		loc:      loc,
		log:      logger.Named("health"),
	}
}

func (a *Adapter) PlatformName() string {
	return a.platform.Name()
}

func (a *Adapter) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Initialize checks availability and permissions once; later calls are no-ops until
// RequestPermissions resets the flag.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	status, err := a.platform.Status(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !status.Available {
		return ErrUnavailable
	}
	if !status.PermissionsGranted {
		return ErrPermissionDenied
	}

	a.initialized = true
	a.log.Debug(fmt.Sprintf("%s initialized", a.platform.Name()))
	return nil
}

// RequestPermissions re-requests platform permissions and re-runs the pre-flight check.
func (a *Adapter) RequestPermissions(ctx context.Context) error {
	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()

	if err := a.platform.RequestPermissions(ctx); err != nil {
		a.log.WithError(err).Warn("Permission request failed")
		return err
	}
	return a.Initialize(ctx)
}

// QueryRange fetches and normalizes daily aggregates for [start, end].
func (a *Adapter) QueryRange(ctx context.Context, start, end time.Time) QueryResult {
	if err := a.Initialize(ctx); err != nil {
		return QueryResult{Error: err}
	}

	req := AggregateRequest{
		StartDate: start.Format(time.RFC3339),
		EndDate:   end.Format(time.RFC3339),
		DataType:  "steps",
		Bucket:    "day",
	}

	raw, err := a.platform.Aggregate(ctx, req)
	if err != nil {
		a.log.WithError(err).Warn(fmt.Sprintf("Aggregate %s..%s failed", req.StartDate, req.EndDate))
		return QueryResult{Error: err}
	}

	days, err := Transform(raw, a.loc)
	if err != nil {
		a.log.WithError(err).Warn("Failed to parse aggregate response")
		return QueryResult{Raw: raw, Error: err}
	}

	return QueryResult{Success: true, Days: days, Raw: raw}
}
