// Package health talks to the external health platform and normalizes its daily step aggregates.
package health

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrUnavailable      = errors.New("health platform unavailable")
	ErrPermissionDenied = errors.New("health platform permission denied")
	ErrUnknownShape     = errors.New("unrecognized health platform response")
)

// AggregateRequest is the query contract sent to every platform.
type AggregateRequest struct {
	StartDate string `json:"startDate"` // RFC3339
	EndDate   string `json:"endDate"`   // RFC3339
	DataType  string `json:"dataType"`
	Bucket    string `json:"bucket"`
}

// Status is the platform's pre-flight state.
type Status struct {
	Available          bool `json:"available"`
	PermissionsGranted bool `json:"permissionsGranted"`
}

// Platform is a source of daily step aggregates. Aggregate returns the platform's raw JSON;
// Transform turns it into canonical records.
type Platform interface {
	Name() string
	Status(ctx context.Context) (Status, error)
	RequestPermissions(ctx context.Context) error
	Aggregate(ctx context.Context, req AggregateRequest) (json.RawMessage, error)
}
