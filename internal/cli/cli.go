// Package cli provides the stride command line: the server plus one-shot maintenance commands
// that work directly on the local database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/config"
	"github.com/tahcohcat/stride/internal/database"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/store"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Local-first step tracking",
	Long: `Local-first step tracking.

Steps are kept in a local SQLite database and synced from the configured
health platform. Achievements, statistics and exports work offline; the
leaderboard is optional.

Configuration is read from config.yaml, .env and STRIDE_* environment
variables, e.g. STRIDE_DATABASE_PATH=/data/stride.db.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(badgesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(weatherCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

// Execute runs the root command until it returns or ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app is what every command needs: configuration and an open store.
type app struct {
	cfg   *config.Config
	db    *database.DB
	store *store.Store
	loc   *time.Location
}

func openApp() (*app, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.SetGlobalLevel(logger.ParseLevel(cfg.Log.Level))

	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid sync.timezone: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{cfg: cfg, db: db, store: store.New(db, store.WithLocation(loc)), loc: loc}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

func (a *app) today() string {
	return models.FormatDate(time.Now().In(a.loc))
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
