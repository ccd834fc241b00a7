package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

var connectCmd = &cobra.Command{
	Use:   "connect <provider>",
	Short: "Link a provider account",
	Long: `Opens the provider's authorisation page in a new browser tab and waits
until the backend reports success, the tab is closed or the flow times out.

Providers: linkedin, youtube, spotify, x`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <provider>",
	Short: "Unlink a provider account",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisconnect,
}

var refreshTokensCmd = &cobra.Command{
	Use:   "refresh-tokens <provider>",
	Short: "Ask the backend to refresh a provider's OAuth tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefreshTokens,
}

// isTerminal reports whether stdin is interactive.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var errConfirmationRequired = errors.New("refusing to disconnect without confirmation; pass --yes")

func init() {
	disconnectCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(refreshTokensCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	if linkService == nil {
		return errLinkNotConfigured
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}

	ctx := cmd.Context()
	startSession(ctx)

	flow := linkService.Begin(ctx, provider)
	select {
	case <-flow.Done():
	default:
		cmd.Printf("Opening %s authorisation in your browser...\n", provider.DisplayName())
		cmd.Println("Finish in the new tab, or close it to cancel.")
	}

	return printResult(cmd, flow.Wait())
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	if linkService == nil {
		return errLinkNotConfigured
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("getting yes flag: %w", err)
	}
	if !yes {
		if !isTerminal() {
			return errConfirmationRequired
		}
		prompt := fmt.Sprintf("Disconnect %s? [y/N] ", provider.DisplayName())
		if !confirm(cmd.OutOrStdout(), cmd.InOrStdin(), prompt) {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()
	startSession(ctx)
	return printResult(cmd, linkService.Disconnect(ctx, provider))
}

func runRefreshTokens(cmd *cobra.Command, args []string) error {
	if linkService == nil {
		return errLinkNotConfigured
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}

	ctx := cmd.Context()
	startSession(ctx)
	return printResult(cmd, linkService.RefreshProviderTokens(ctx, provider))
}

// printResult reports a settled flow and returns its error so the exit code follows the outcome.
func printResult(cmd *cobra.Command, result domain.FlowResult) error {
	line := fmt.Sprintf("%s: %s", result.Provider.DisplayName(), result.Outcome.Description())
	if d := result.Duration(); d > 0 && result.FlowID != "" {
		line += fmt.Sprintf(" (flow %s, %s)", shortFlowID(result.FlowID), d.Round(time.Millisecond))
	}
	cmd.Println(line)
	if result.Detail != "" {
		cmd.Printf("  %s\n", result.Detail)
	}
	if result.OK {
		return nil
	}
	return result.Err()
}

func shortFlowID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

//nolint:errcheck // CLI helper, error ignored for UX
func confirm(out io.Writer, in io.Reader, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
