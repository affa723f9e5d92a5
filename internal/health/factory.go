package health

import (
	"context"
	"fmt"

	"github.com/tahcohcat/stride/config"
)

type Provider string

const (
	ProviderNone      Provider = "none"
	ProviderBridge    Provider = "bridge"
	ProviderGoogleFit Provider = "googlefit"
)

// NewPlatform creates the platform selected by configuration.
func NewPlatform(ctx context.Context, cfg config.HealthConfig) (Platform, error) {
	switch Provider(cfg.Provider) {
	case ProviderNone, "":
		return NewNoopPlatform(), nil
	case ProviderBridge:
		return NewBridgePlatform(cfg.BridgeURL, cfg.TimeoutDuration()), nil
	case ProviderGoogleFit:
		p, err := NewGoogleFitPlatform(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported health provider: %s", cfg.Provider)
	}
}
