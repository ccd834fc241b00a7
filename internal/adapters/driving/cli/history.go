package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent connect and disconnect attempts",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of flows to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}

	flows, err := historyService.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("reading flow history: %w", err)
	}
	if len(flows) == 0 {
		cmd.Println("No flows recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tPROVIDER\tKIND\tTOOK\tOUTCOME")
	for _, f := range flows {
		outcome := f.Outcome.Description()
		if f.Detail != "" {
			outcome += ": " + f.Detail
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			f.Provider.DisplayName(),
			f.Kind,
			f.Duration().Round(time.Millisecond),
			outcome,
		)
	}
	return w.Flush()
}
