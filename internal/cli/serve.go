package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/internal/api"
	"github.com/tahcohcat/stride/internal/auth"
	"github.com/tahcohcat/stride/internal/health"
	"github.com/tahcohcat/stride/internal/leaderboard"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/services"
	"github.com/tahcohcat/stride/internal/stepsync"
	"github.com/tahcohcat/stride/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background sync",
	Long: `Run the HTTP API, the websocket event stream and the periodic health sync.

A sync runs once at startup and then every sync.interval seconds. When
leaderboard.enabled is set, local changes are pushed to the shared database.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	log := logger.Named("serve")

	platform, err := health.NewPlatform(ctx, a.cfg.Health)
	if err != nil {
		return fmt.Errorf("health platform: %w", err)
	}
	engine := stepsync.NewEngine(a.store, health.NewAdapter(platform, a.loc), a.loc)
	scheduler := stepsync.NewScheduler(engine, a.cfg.Sync.IntervalDuration(), a.cfg.Sync.TriggerLimitDuration())

	hub := websocket.NewHub(a.cfg.Server.AllowedOrigins)
	go hub.Run(ctx)

	achievements := services.NewAchievementService(a.store, hub)
	stopAchievements := achievements.Start()
	defer stopAchievements()

	board := openLeaderboard(ctx, a, log)
	if board != nil {
		defer board.Close()
	}

	go scheduler.Run(ctx)

	h := api.NewHandler(api.Deps{
		Store:            a.store,
		Scheduler:        scheduler,
		Achievements:     achievements,
		Profiles:         services.NewProfileService(a.store),
		Leaderboard:      board,
		LeaderboardLimit: a.cfg.Leaderboard.Limit,
		Events:           hub,
		Location:         a.loc,
	})
	gate := auth.NewGate(a.cfg.Auth)
	if !gate.Enabled() {
		log.Warn("auth.password_hash is empty, the API is open")
	} else if a.cfg.Auth.InsecureSecret() {
		log.Warn("auth.session_secret is unset or the default, session cookies can be forged")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           api.NewRouter(h, gate, hub, a.cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Success(fmt.Sprintf("Server running at http://localhost:%d", a.cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

// openLeaderboard connects and starts publishing. A failure leaves the leaderboard off.
func openLeaderboard(ctx context.Context, a *app, log *logger.Log) *leaderboard.Client {
	if !a.cfg.Leaderboard.Enabled {
		return nil
	}

	board, err := leaderboard.Open(ctx, a.cfg.Leaderboard.DSN)
	if err != nil {
		log.WithError(err).Warn("Leaderboard unavailable, continuing without it")
		return nil
	}
	if err := board.EnsureSchema(ctx); err != nil {
		log.WithError(err).Warn("Leaderboard schema check failed, continuing without it")
		_ = board.Close()
		return nil
	}

	publisher := leaderboard.NewPublisher(board, a.store)
	publisher.Start(ctx)
	go func() {
		if err := publisher.PublishAll(ctx); err != nil {
			log.WithError(err).Warn("Initial leaderboard publish failed")
		}
	}()
	return board
}
