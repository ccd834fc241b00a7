// Package cli provides the cobra command tree for linkdeck.
// Commands are thin: they parse arguments, call a driving port and print
// the result. Services are injected by main through SetServices.
package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Services holds the driving ports the commands call.
type Services struct {
	Link      driving.LinkService
	Session   driving.Session
	History   driving.HistoryService
	Settings  driving.SettingsService
	Scheduler driving.Scheduler

	// SchedulerConfig decides whether long-running commands start the scheduler.
	SchedulerConfig domain.SchedulerConfig

	// RelayURL is where the completion relay listens. Informational.
	RelayURL string

	// WatchSettings reloads settings when the config file changes.
	// It returns once the watch is established.
	WatchSettings func(ctx context.Context) error
}

var (
	version = "dev"
	verbose bool

	linkService     driving.LinkService
	session         driving.Session
	historyService  driving.HistoryService
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
	schedulerConfig domain.SchedulerConfig
	relayURL        string
	watchSettings   func(ctx context.Context) error

	sessionOnce sync.Once
)

var errLinkNotConfigured = errors.New("link service not configured")

var rootCmd = &cobra.Command{
	Use:   "linkdeck",
	Short: "Link third-party accounts from the terminal",
	Long: `linkdeck links LinkedIn, YouTube, Spotify and X accounts to your backend account.

Each connect opens the provider's authorisation page in a new browser tab and
waits for the backend to report the outcome. Connected accounts, flow history
and background token refresh are available from the CLI, the TUI and the MCP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	linkService = s.Link
	session = s.Session
	historyService = s.History
	settingsService = s.Settings
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
	relayURL = s.RelayURL
	watchSettings = s.WatchSettings
	sessionOnce = sync.Once{}
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// startSession populates the account cache and security token once per process.
// A failed fetch is logged; commands continue against an empty snapshot.
func startSession(ctx context.Context) {
	if session == nil {
		return
	}
	sessionOnce.Do(func() {
		if err := session.Init(ctx); err != nil {
			logger.Warn("could not load connected accounts: %v", err)
		}
	})
}

// startBackground runs the scheduler and the settings watch until ctx ends.
// The returned func stops the scheduler and waits for running tasks.
func startBackground(ctx context.Context) func() {
	if watchSettings != nil {
		if err := watchSettings(ctx); err != nil {
			logger.Warn("settings will not reload on change: %v", err)
		}
	}

	if scheduler == nil || !schedulerConfig.Enabled {
		return func() {}
	}

	go func() {
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped: %v", err)
		}
	}()

	return func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("scheduler stop: %v", err)
		}
	}
}
