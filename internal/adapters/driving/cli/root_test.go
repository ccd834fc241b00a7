package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkdeck/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
	"github.com/custodia-labs/linkdeck/internal/core/services"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// settledFlow is a PendingFlow that has already settled.
type settledFlow struct {
	result domain.FlowResult
	done   chan struct{}
}

func (f *settledFlow) ID() string                { return f.result.FlowID }
func (f *settledFlow) Provider() domain.Provider { return f.result.Provider }
func (f *settledFlow) Done() <-chan struct{}     { return f.done }
func (f *settledFlow) Wait() domain.FlowResult   { return f.result }

// mockLinkService records calls and settles every flow with Outcome.
type mockLinkService struct {
	mu         sync.Mutex
	calls      []string
	connected  []domain.Provider
	outcome    domain.Outcome
	detail     string
	refreshErr error
	account    *domain.ConnectedAccount
	accountErr error
}

var _ driving.LinkService = (*mockLinkService)(nil)

func (m *mockLinkService) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockLinkService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockLinkService) result(p domain.Provider, kind domain.FlowKind, fallback domain.Outcome) domain.FlowResult {
	outcome := m.outcome
	if outcome == "" {
		outcome = fallback
	}
	r := domain.NewFlowResult("0123456789abcdef", p, kind, outcome, time.Now().Add(-1500*time.Millisecond))
	r.Detail = m.detail
	return r
}

func (m *mockLinkService) Begin(_ context.Context, p domain.Provider) driving.PendingFlow {
	m.record("begin:" + string(p))
	f := &settledFlow{result: m.result(p, domain.FlowConnect, domain.OutcomeConnected), done: make(chan struct{})}
	close(f.done)
	return f
}

func (m *mockLinkService) Connect(ctx context.Context, p domain.Provider) domain.FlowResult {
	return m.Begin(ctx, p).Wait()
}

func (m *mockLinkService) Disconnect(_ context.Context, p domain.Provider) domain.FlowResult {
	m.record("disconnect:" + string(p))
	return m.result(p, domain.FlowDisconnect, domain.OutcomeDisconnected)
}

func (m *mockLinkService) RefreshConnectedProviders(context.Context) error {
	m.record("refresh")
	return m.refreshErr
}

func (m *mockLinkService) ConnectedProviders() []domain.Provider {
	return m.connected
}

func (m *mockLinkService) AccountDetails(_ context.Context, p domain.Provider) (*domain.ConnectedAccount, error) {
	m.record("details:" + string(p))
	return m.account, m.accountErr
}

func (m *mockLinkService) RefreshProviderTokens(_ context.Context, p domain.Provider) domain.FlowResult {
	m.record("tokens:" + string(p))
	return m.result(p, domain.FlowTokenRefresh, domain.OutcomeRefreshed)
}

type mockSession struct {
	inits atomic.Int32
	err   error
}

func (m *mockSession) Init(context.Context) error {
	m.inits.Add(1)
	return m.err
}

func (m *mockSession) Teardown() {}

type mockHistoryService struct {
	flows     []domain.FlowResult
	err       error
	lastLimit int
}

func (m *mockHistoryService) Recent(_ context.Context, limit int) ([]domain.FlowResult, error) {
	m.lastLimit = limit
	return m.flows, m.err
}

type mockScheduler struct {
	started chan struct{}
	stopped atomic.Bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped.Store(true)
	return nil
}

// setupServices installs s for the duration of the test.
func setupServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Link:            linkService,
		Session:         session,
		History:         historyService,
		Settings:        settingsService,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		RelayURL:        relayURL,
		WatchSettings:   watchSettings,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })
}

func newSettingsService() *services.SettingsService {
	return services.NewSettingsService(memory.NewConfigStore())
}

// execute runs the root command and returns combined output.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores defaults since cobra keeps flag values between executions.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "linkdeck", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	want := []string{
		"connect", "disconnect", "refresh-tokens", "accounts", "account",
		"history", "settings", "tui", "mcp", "daemon", "version",
	}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, registered[name], "%s should be registered", name)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	setupServices(t, Services{})
	t.Cleanup(func() { logger.SetVerbose(false) })

	_, err := execute(t, context.Background(), "--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestSetVersion(t *testing.T) {
	original := version
	t.Cleanup(func() { version = original })

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestStartSession_RunsOnce(t *testing.T) {
	sess := &mockSession{err: errors.New("backend down")}
	setupServices(t, Services{Session: sess})

	startSession(context.Background())
	startSession(context.Background())

	assert.Equal(t, int32(1), sess.inits.Load())
}

func TestStartBackground_SchedulerDisabled(t *testing.T) {
	sched := &mockScheduler{started: make(chan struct{})}
	var watched atomic.Bool
	setupServices(t, Services{
		Scheduler:       sched,
		SchedulerConfig: domain.SchedulerConfig{Enabled: false},
		WatchSettings: func(context.Context) error {
			watched.Store(true)
			return nil
		},
	})

	stop := startBackground(context.Background())
	stop()

	assert.True(t, watched.Load())
	assert.False(t, sched.stopped.Load())
}

func TestStartBackground_RunsScheduler(t *testing.T) {
	sched := &mockScheduler{started: make(chan struct{})}
	setupServices(t, Services{
		Scheduler:       sched,
		SchedulerConfig: domain.SchedulerConfig{Enabled: true},
		WatchSettings:   func(context.Context) error { return errors.New("no inotify") },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := startBackground(ctx)

	select {
	case <-sched.started:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not start")
	}
	stop()
	assert.True(t, sched.stopped.Load())
}
