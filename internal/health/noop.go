package health

import (
	"context"
	"encoding/json"

	"github.com/tahcohcat/stride/internal/logger"
)

// NoopPlatform is used when no health provider is configured. It is never available.
type NoopPlatform struct{}

func NewNoopPlatform() *NoopPlatform {
	return &NoopPlatform{}
}

func (n *NoopPlatform) Status(_ context.Context) (Status, error) {
	logger.New().Debug("no health platform configured. reporting unavailable")
	return Status{}, nil
}

func (n *NoopPlatform) RequestPermissions(_ context.Context) error {
	return ErrUnavailable
}

func (n *NoopPlatform) Aggregate(_ context.Context, _ AggregateRequest) (json.RawMessage, error) {
	return nil, ErrUnavailable
}

func (n *NoopPlatform) Name() string {
	return "none"
}
