package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/store"
)

const publishQueueSize = 64

// Publisher mirrors local step and profile changes to the remote leaderboard.
type Publisher struct {
	client *Client
	store  *store.Store
	log    *logger.Log
}

func NewPublisher(client *Client, s *store.Store) *Publisher {
	return &Publisher{client: client, store: s, log: logger.Named("leaderboard")}
}

// Start subscribes to the store and publishes changes from a background goroutine until ctx ends.
// Remote failures are logged and never reach the local write path.
func (p *Publisher) Start(ctx context.Context) {
	queue := make(chan store.Change, publishQueueSize)

	unsubscribe := p.store.Subscribe(func(c store.Change) {
		if c.Kind != store.ChangeSteps && c.Kind != store.ChangeProfile {
			return
		}
		select {
		case queue <- c:
		default:
			p.log.Warn(fmt.Sprintf("Publish queue full, dropping %s change", c.Kind))
		}
	})

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-queue:
				if err := p.Publish(ctx, c); err != nil {
					p.log.WithError(err).Warn("Failed to publish to leaderboard")
				}
			}
		}
	}()
}

// Publish pushes one change. Days that no longer exist locally are removed remotely.
func (p *Publisher) Publish(ctx context.Context, c store.Change) error {
	profile := p.store.Profile()
	if profile == nil {
		return nil
	}

	switch c.Kind {
	case store.ChangeProfile:
		return p.client.UpsertProfile(ctx, profile)
	case store.ChangeSteps:
		for _, date := range c.Dates {
			entry, err := p.store.Get(date)
			if errors.Is(err, store.ErrNotFound) {
				if err := p.client.DeleteDailySteps(ctx, profile.UserID, date); err != nil {
					return err
				}
				continue
			} else if err != nil {
				return err
			}
			if err := p.client.UpsertDailySteps(ctx, profile.UserID, entry.FormattedDate, entry.Steps); err != nil {
				return err
			}
		}
	}
	return nil
}

// PublishAll pushes the profile and the whole history.
func (p *Publisher) PublishAll(ctx context.Context) error {
	profile, err := p.store.EnsureProfile()
	if err != nil {
		return err
	}
	if err := p.client.UpsertProfile(ctx, profile); err != nil {
		return err
	}

	entries := p.store.GetAll()
	for _, e := range entries {
		if err := p.client.UpsertDailySteps(ctx, profile.UserID, e.FormattedDate, e.Steps); err != nil {
			return err
		}
	}
	p.log.Info(fmt.Sprintf("Published %d days to the leaderboard", len(entries)))
	return nil
}
