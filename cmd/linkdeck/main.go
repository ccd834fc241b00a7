// Command linkdeck links third-party accounts to a backend account from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/linkdeck/internal/adapters/driven/backend"
	"github.com/custodia-labs/linkdeck/internal/adapters/driven/browser"
	"github.com/custodia-labs/linkdeck/internal/adapters/driven/config/file"
	"github.com/custodia-labs/linkdeck/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/linkdeck/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/cli"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/relay"
	"github.com/custodia-labs/linkdeck/internal/core/services"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	client, err := backend.NewClient(settings.Backend)
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}

	relayServer := relay.NewServer(settings.Relay.Port)
	if err := relayServer.Start(); err != nil {
		return fmt.Errorf("starting relay: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := relayServer.Stop(shutdownCtx); err != nil {
			logger.Warn("relay shutdown: %v", err)
		}
	}()

	session := services.NewSession(client)
	defer session.Teardown()

	linkService := services.NewLinkService(
		session,
		client,
		browser.NewOpener(relayServer),
		relayServer,
		relayServer,
		settings.Flow,
	)

	svc := cli.Services{
		Link:            linkService,
		Session:         session,
		Settings:        settingsService,
		SchedulerConfig: settings.Scheduler,
		RelayURL:        relayServer.URL(),
		WatchSettings: func(ctx context.Context) error {
			return configStore.Watch(ctx, func() {
				reloaded, err := settingsService.Get()
				if err != nil {
					logger.Warn("ignoring config change: %v", err)
					return
				}
				linkService.SetFlowSettings(reloaded.Flow)
				logger.Debug("reloaded flow settings: timeout %s, poll %s",
					reloaded.Flow.Timeout, reloaded.Flow.PollInterval)
			})
		},
	}

	// Without the database, history lasts for this process and the scheduler is off.
	store, err := sqlite.NewStore("")
	if err != nil {
		logger.Warn("flow history will not be saved: %v", err)
		journal := memory.NewFlowJournal()
		linkService.SetJournal(journal)
		svc.History = services.NewHistoryService(journal)
	} else {
		defer store.Close() //nolint:errcheck
		linkService.SetJournal(store.FlowJournal())
		svc.History = services.NewHistoryService(store.FlowJournal())
		svc.Scheduler = services.NewScheduler(settings.Scheduler, store.SchedulerStore(), linkService)
	}

	cli.SetServices(svc)
	cli.SetVersion(version)
	return cli.Execute(ctx)
}
