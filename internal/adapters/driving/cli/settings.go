package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

var errSettingsNotConfigured = errors.New("settings service not configured")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change linkdeck settings.

Settings live in ~/.linkdeck/config.toml. Running tui, mcp and daemon
sessions pick up changes to the file without a restart.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a single setting",
	Long: `Change a single setting. Durations use Go syntax (90s, 5m, 1h30m).

Example:
  linkdeck settings set flow.timeout 2m`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Backend]")
	cmd.Printf("  URL: %s\n", settings.Backend.URL)
	cmd.Printf("  CSRF header: %s\n", settings.Backend.CSRFHeader)
	cmd.Printf("  Session cookie: %s\n", settings.Backend.SessionCookie)
	if settings.Backend.SessionID != "" {
		cmd.Printf("  Session ID: %s\n", maskSecret(settings.Backend.SessionID))
	} else {
		cmd.Printf("  Session ID: (not set)\n")
	}
	if settings.Backend.RateLimit > 0 {
		cmd.Printf("  Rate limit: %g req/s\n", settings.Backend.RateLimit)
	} else {
		cmd.Printf("  Rate limit: off\n")
	}
	cmd.Println()

	cmd.Println("[Flow]")
	cmd.Printf("  Timeout: %s\n", settings.Flow.Timeout)
	cmd.Printf("  Poll interval: %s\n", settings.Flow.PollInterval)
	cmd.Println()

	cmd.Println("[Relay]")
	if settings.Relay.Port == 0 {
		cmd.Printf("  Port: auto\n")
	} else {
		cmd.Printf("  Port: %d\n", settings.Relay.Port)
	}
	cmd.Println()

	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Scheduler.Enabled))
	taskIDs := make([]string, 0, len(settings.Scheduler.TaskConfigs))
	for id := range settings.Scheduler.TaskConfigs {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)
	for _, id := range taskIDs {
		tc := settings.Scheduler.GetTaskConfig(id)
		cmd.Printf("  %s: %s, every %s\n", id, enabledWord(tc.Enabled), tc.Interval)
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(settingsService.Keys(), ", "))
		}
		return fmt.Errorf("failed to save setting: %w", err)
	}

	if key == "backend.session_id" {
		value = maskSecret(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func enabledWord(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
