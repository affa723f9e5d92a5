package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/internal/health"
	"github.com/tahcohcat/stride/internal/services"
	"github.com/tahcohcat/stride/internal/stepsync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync steps from the health platform once",
	Long: `Pull step counts from the configured health platform into the local
database, from the day after the last synced date up to today, then print
the sync result as JSON.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	platform, err := health.NewPlatform(cmd.Context(), a.cfg.Health)
	if err != nil {
		return fmt.Errorf("health platform: %w", err)
	}

	achievements := services.NewAchievementService(a.store, nil)
	stop := achievements.Start()
	defer stop()

	engine := stepsync.NewEngine(a.store, health.NewAdapter(platform, a.loc), a.loc)
	result := engine.Sync(cmd.Context())
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("sync failed: %s", result.Error)
	}
	return nil
}
