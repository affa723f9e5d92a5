package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/services"
	"github.com/tahcohcat/stride/internal/stats"
)

var (
	addDate  string
	addSteps int

	stepsFrom string
	stepsTo   string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record the step count for a day",
	Long: `Record the step count for a day, replacing any existing count for that date.

Examples:
  stride add --steps 8400
  stride add --date 2024-05-14 --steps 12000`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List recorded days",
	Args:  cobra.NoArgs,
	RunE:  runSteps,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals, averages and streaks",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	addCmd.Flags().StringVar(&addDate, "date", "", "date as YYYY-MM-DD (default today)")
	addCmd.Flags().IntVar(&addSteps, "steps", 0, "step count")
	_ = addCmd.MarkFlagRequired("steps")

	stepsCmd.Flags().StringVar(&stepsFrom, "from", "", "first date to list")
	stepsCmd.Flags().StringVar(&stepsTo, "to", "", "last date to list")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	achievements := services.NewAchievementService(a.store, nil)
	stop := achievements.Start()
	defer stop()

	date := addDate
	if date == "" {
		date = a.today()
	}
	steps := addSteps
	entry, err := a.store.Add(models.StepInput{Steps: &steps, FormattedDate: date})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps\n", entry.FormattedDate, entry.Steps)
	return nil
}

func runSteps(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.store.GetAll()
	if stepsFrom != "" || stepsTo != "" {
		from, to := stepsFrom, stepsTo
		if from == "" {
			from = "0000-01-01"
		}
		if to == "" {
			to = a.today()
		}
		if entries, err = a.store.Range(from, to); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tSTEPS")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", e.FormattedDate, e.Steps)
	}
	return w.Flush()
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return printJSON(cmd.OutOrStdout(), stats.Summarize(a.store.GetAll(), a.today()))
}
