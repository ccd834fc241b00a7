package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for linkdeck.

The TUI lists providers with their link status, runs connect flows in the
background so several can be pending at once, and shows recent flow history.

Controls:
  ↑/k, ↓/j - Navigate providers
  c        - Connect
  d        - Disconnect
  x        - Cancel a pending connect
  t        - Refresh provider tokens
  Enter    - Account details
  Esc      - Back
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Surface a stack trace instead of a garbled alt screen.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx := cmd.Context()
	startSession(ctx)

	// The TUI is long-running, so background tasks run alongside it.
	stop := startBackground(ctx)
	defer stop()

	app, err := tui.NewApp(&tui.Ports{
		Link:    linkService,
		History: historyService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
