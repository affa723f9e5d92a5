package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/services"
)

var (
	exportOutput string
	importMerge  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export steps, profile and sync state as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an export file",
	Long: `Import a file written by "stride export".

By default the file replaces all local steps, the profile and the sync state.
With --merge, local data is kept and each date takes whichever entry was
updated last.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
	importCmd.Flags().BoolVar(&importMerge, "merge", false, "merge into local data instead of replacing it")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.store.Export()
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return printJSON(cmd.OutOrStdout(), snapshot)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	defer f.Close()
	if err := printJSON(f, snapshot); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", snapshot.Metadata.TotalEntries, exportOutput)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	achievements := services.NewAchievementService(a.store, nil)
	stop := achievements.Start()
	defer stop()

	mode := models.ImportOverwrite
	if importMerge {
		mode = models.ImportMerge
	}
	result, err := a.store.Import(data, mode)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported (%s): %d added, %d updated, %d skipped, %d rejected\n",
		result.Mode, result.Added, result.Updated, result.Skipped, result.Rejected)
	return nil
}
