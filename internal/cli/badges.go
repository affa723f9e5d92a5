package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tahcohcat/stride/internal/services"
)

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Show badges and milestones",
	Long: `Re-evaluate achievements against the local history and list every badge and
milestone with its state.`,
	Args: cobra.NoArgs,
	RunE: runBadges,
}

func runBadges(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	achievements := services.NewAchievementService(a.store, nil)
	if _, err := achievements.Refresh(); err != nil {
		return err
	}
	overview := achievements.Overview()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total steps: %d\n\n", overview.TotalSteps)
	_, _ = fmt.Fprintln(w, "ID\tBADGE\tUNLOCKED")
	for _, b := range overview.Badges {
		unlocked := "-"
		if b.Unlocked {
			unlocked = b.UnlockDate
		}
		_, _ = fmt.Fprintf(w, "%d\t%s %s\t%s\n", b.ID, b.Icon, b.Name, unlocked)
	}

	_, _ = fmt.Fprintln(w, "\nMILESTONE\tRARITY\tREACHED")
	for _, m := range overview.Milestones {
		reached := "-"
		if m.Crossed {
			reached = m.Date
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", m.Value, m.Rarity, reached)
	}
	return w.Flush()
}
