package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List providers and whether they are linked",
	RunE:  runAccounts,
}

var accountCmd = &cobra.Command{
	Use:   "account <provider>",
	Short: "Show the backend's record for a linked provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccount,
}

func init() {
	accountsCmd.Flags().Bool("refresh", false, "re-read connected accounts from the backend")
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	if linkService == nil {
		return errLinkNotConfigured
	}
	refresh, err := cmd.Flags().GetBool("refresh")
	if err != nil {
		return fmt.Errorf("getting refresh flag: %w", err)
	}

	ctx := cmd.Context()
	startSession(ctx)
	if refresh {
		if err := linkService.RefreshConnectedProviders(ctx); err != nil {
			cmd.PrintErrf("Warning: showing last known accounts: %v\n", err)
		}
	}

	connected := domain.NewProviderSet(linkService.ConnectedProviders()...)
	providers := domain.KnownProviders()
	for _, p := range connected.Slice() {
		if !containsProvider(providers, p) {
			providers = append(providers, p)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS")
	for _, p := range providers {
		status := "not connected"
		if connected.Has(p) {
			status = "connected"
		}
		fmt.Fprintf(w, "%s\t%s\n", p.DisplayName(), status)
	}
	return w.Flush()
}

func runAccount(cmd *cobra.Command, args []string) error {
	if linkService == nil {
		return errLinkNotConfigured
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}

	ctx := cmd.Context()
	startSession(ctx)

	account, err := linkService.AccountDetails(ctx, provider)
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("%s is not linked.\n", provider.DisplayName())
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching %s account: %w", provider, err)
	}

	cmd.Printf("Provider:   %s\n", domain.Provider(account.Provider).DisplayName())
	cmd.Printf("Username:   %s\n", valueOrDash(account.Username))
	cmd.Printf("Email:      %s\n", valueOrDash(account.Email))
	if !account.ConnectedAt.IsZero() {
		cmd.Printf("Connected:  %s\n", account.ConnectedAt.Local().Format("2006-01-02 15:04"))
	}
	cmd.Printf("Active:     %t\n", account.IsActive)
	return nil
}

func containsProvider(list []domain.Provider, p domain.Provider) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
