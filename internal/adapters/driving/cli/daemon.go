package cli

import (
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep accounts and tokens fresh in the background",
	Long: `Runs the completion relay and the background scheduler until interrupted.

The scheduler periodically reconciles connected accounts with the backend and
refreshes provider tokens. Settings changes are picked up without a restart.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if linkService == nil {
		return errLinkNotConfigured
	}

	ctx := cmd.Context()
	startSession(ctx)
	stop := startBackground(ctx)
	defer stop()

	if relayURL != "" {
		cmd.Printf("Relay listening on %s\n", relayURL)
	}
	if !schedulerConfig.Enabled || scheduler == nil {
		cmd.Println("Scheduler disabled; only the relay is running.")
	}
	cmd.Println("linkdeck daemon running. Press Ctrl+C to stop.")

	<-ctx.Done()
	cmd.Println("Shutting down.")
	return nil
}
