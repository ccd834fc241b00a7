package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Ensure LinkService implements the interface.
var _ driving.LinkService = (*LinkService)(nil)

// Ensure Flow implements the interface.
var _ driving.PendingFlow = (*Flow)(nil)

const (
	// settleTimeout bounds the cache refresh after a successful flow.
	settleTimeout = 30 * time.Second

	// journalTimeout bounds writing a settled flow to the journal.
	journalTimeout = 5 * time.Second

	// journalRetention is how many settled flows the journal keeps.
	journalRetention = 500
)

// Flow is one connect attempt. It settles exactly once.
type Flow struct {
	id        string
	provider  domain.Provider
	startedAt time.Time
	startHref string
	// redirectsAtStart is the location's redirect count when the flow began.
	redirectsAtStart uint64

	// resolved latches the first outcome; every race participant checks it.
	resolved        atomic.Bool
	messageReceived atomic.Bool

	mu      sync.Mutex
	tab     driven.Tab
	stops   []func()
	cleaned bool

	done   chan struct{}
	result domain.FlowResult
}

func newFlow(provider domain.Provider) *Flow {
	return &Flow{
		id:        uuid.NewString(),
		provider:  provider,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// ID identifies the flow.
func (f *Flow) ID() string {
	return f.id
}

// Provider is the provider being linked.
func (f *Flow) Provider() domain.Provider {
	return f.provider
}

// Done is closed once the flow has settled.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the flow settles.
func (f *Flow) Wait() domain.FlowResult {
	<-f.done
	return f.result
}

// setTab records the spawned tab. Returns true if the flow already resolved,
// in which case the caller owns closing the tab.
func (f *Flow) setTab(tab driven.Tab) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tab = tab
	return f.resolved.Load()
}

func (f *Flow) spawnedTab() driven.Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tab
}

// onCleanup registers fn to run at cleanup. After cleanup, fn runs immediately.
func (f *Flow) onCleanup(fn func()) {
	f.mu.Lock()
	if f.cleaned {
		f.mu.Unlock()
		fn()
		return
	}
	f.stops = append(f.stops, fn)
	f.mu.Unlock()
}

// cleanup runs registered functions in reverse order, once.
func (f *Flow) cleanup() {
	f.mu.Lock()
	if f.cleaned {
		f.mu.Unlock()
		return
	}
	f.cleaned = true
	stops := f.stops
	f.stops = nil
	f.mu.Unlock()

	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
}

func (f *Flow) finish(result domain.FlowResult) {
	f.result = result
	close(f.done)
}

func (f *Flow) tag() string {
	return fmt.Sprintf("[flow %s %s]", shortID(f.id), f.provider)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// LinkService orchestrates connect and disconnect flows.
type LinkService struct {
	session   *Session
	backend   driven.LinkBackend
	opener    driven.TabOpener
	location  driven.Location
	messenger *Messenger
	journal   driven.FlowJournal

	settings atomic.Pointer[domain.FlowSettings]
}

// NewLinkService creates a link service.
func NewLinkService(
	session *Session,
	backend driven.LinkBackend,
	opener driven.TabOpener,
	bus driven.MessageBus,
	location driven.Location,
	settings domain.FlowSettings,
) *LinkService {
	s := &LinkService{
		session:   session,
		backend:   backend,
		opener:    opener,
		location:  location,
		messenger: NewMessenger(bus, backend.Origin()),
	}
	s.SetFlowSettings(settings)
	return s
}

// SetJournal sets the journal settled flows are recorded to.
func (s *LinkService) SetJournal(journal driven.FlowJournal) {
	s.journal = journal
}

// SetFlowSettings replaces the timing used by flows started afterwards.
func (s *LinkService) SetFlowSettings(settings domain.FlowSettings) {
	normalised := settings.Normalised()
	s.settings.Store(&normalised)
}

// FlowSettings returns the timing new flows use.
func (s *LinkService) FlowSettings() domain.FlowSettings {
	return *s.settings.Load()
}

// Connect links a provider and blocks until the flow settles.
func (s *LinkService) Connect(ctx context.Context, provider domain.Provider) domain.FlowResult {
	return s.Begin(ctx, provider).Wait()
}

// Begin starts a connect flow and returns immediately.
func (s *LinkService) Begin(ctx context.Context, provider domain.Provider) (flow driving.PendingFlow) {
	f := newFlow(provider)
	settings := s.FlowSettings()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("%s panic while starting: %v", f.tag(), r)
			s.resolve(ctx, f, domain.OutcomeFailed, fmt.Sprintf("panic: %v", r))
			flow = f
		}
	}()

	logger.Section("Connect " + provider.DisplayName())

	if s.session.Cache().Current().Has(provider) {
		logger.Info("%s already connected, no tab opened", f.tag())
		s.resolve(ctx, f, domain.OutcomeAlreadyConnected, "")
		return f
	}

	// A return from an earlier flow may still be showing; never reuse it.
	f.redirectsAtStart = s.location.Redirects()
	f.startHref = domain.StripOAuthReturn(s.location.Href())
	authURL := s.backend.AuthorizationURL(provider, f.startHref)

	flowCtx, cancel := context.WithTimeout(ctx, settings.Timeout)
	f.onCleanup(cancel)

	// Subscribe before the tab exists so an early message is never missed.
	f.onCleanup(s.messenger.Listen(provider, func(msg domain.ParsedMessage) {
		f.messageReceived.Store(true)
		s.guard(ctx, f, func() { s.onMessage(ctx, f, msg) })
	}))

	logger.Debug("%s opening %s", f.tag(), authURL)
	tab, err := s.opener.Open(flowCtx, authURL, provider.WindowName())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info("%s context cancelled before the tab opened", f.tag())
			s.resolve(ctx, f, domain.OutcomeFailed, "context cancelled")
			return f
		}
		logger.Warn("%s tab blocked: %v", f.tag(), err)
		s.resolve(ctx, f, domain.OutcomeBlocked, err.Error())
		return f
	}
	if f.setTab(tab) {
		s.closeTab(f, tab)
		return f
	}

	monitor := NewTabMonitor(settings.PollInterval)
	redirects := NewRedirectGuard(settings.PollInterval)

	go s.guard(ctx, f, func() {
		monitor.Watch(flowCtx, tab, func() {
			if f.messageReceived.Load() {
				return
			}
			logger.Info("%s tab closed before completion", f.tag())
			s.resolve(ctx, f, domain.OutcomeTabClosed, "")
		})
	})

	go s.guard(ctx, f, func() {
		redirects.Watch(flowCtx, s.location, f.redirectsAtStart, func(href string) {
			logger.Warn("%s original page redirected to %s", f.tag(), href)
			s.resolve(ctx, f, domain.OutcomeRedirected, redirectDetail(href))
		})
	})

	go s.guard(ctx, f, func() {
		<-flowCtx.Done()
		switch {
		case errors.Is(flowCtx.Err(), context.DeadlineExceeded):
			logger.Info("%s timed out after %s", f.tag(), settings.Timeout)
			s.resolve(ctx, f, domain.OutcomeTimeout, "no response within "+settings.Timeout.String())
		case ctx.Err() != nil:
			logger.Info("%s context cancelled", f.tag())
			s.resolve(ctx, f, domain.OutcomeFailed, "context cancelled")
		}
	})

	return f
}

func (s *LinkService) onMessage(ctx context.Context, f *Flow, msg domain.ParsedMessage) {
	if msg.Legacy {
		logger.Debug("%s legacy %s message", f.tag(), msg.Type)
	}
	switch msg.Type {
	case domain.MessageSuccess:
		logger.Info("%s authorization succeeded", f.tag())
		s.resolve(ctx, f, domain.OutcomeConnected, "")
	case domain.MessageError:
		logger.Info("%s provider error: %s", f.tag(), msg.Error)
		s.resolve(ctx, f, domain.OutcomeProviderError, msg.Error)
	case domain.MessageCancel:
		logger.Info("%s cancelled in the tab", f.tag())
		s.resolve(ctx, f, domain.OutcomeCancelled, "")
	}
}

// resolve latches the outcome. Only the first call per flow has any effect.
func (s *LinkService) resolve(ctx context.Context, f *Flow, outcome domain.Outcome, detail string) {
	if !f.resolved.CompareAndSwap(false, true) {
		return
	}
	go s.settle(ctx, f, outcome, detail)
}

// settle runs once per flow, after resolve won the latch.
func (s *LinkService) settle(ctx context.Context, f *Flow, outcome domain.Outcome, detail string) {
	outcome, detail = s.wrapUp(ctx, f, outcome, detail)

	result := domain.NewFlowResult(f.id, f.provider, domain.FlowConnect, outcome, f.startedAt)
	result.Detail = detail
	s.record(ctx, &result)

	logger.Debug("%s settled %s in %s", f.tag(), outcome, result.Duration().Round(time.Millisecond))
	f.finish(result)
}

func (s *LinkService) wrapUp(
	ctx context.Context,
	f *Flow,
	outcome domain.Outcome,
	detail string,
) (settled domain.Outcome, settledDetail string) {
	settled, settledDetail = outcome, detail
	defer func() {
		if r := recover(); r != nil {
			logger.Error("%s panic while settling: %v", f.tag(), r)
			settled, settledDetail = domain.OutcomeFailed, fmt.Sprintf("panic: %v", r)
		}
	}()

	f.cleanup()
	if tab := f.spawnedTab(); tab != nil {
		s.closeTab(f, tab)
	}

	if outcome == domain.OutcomeConnected {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		defer cancel()
		if _, err := s.session.Cache().Refresh(refreshCtx); err != nil {
			logger.Warn("%s connected but account refresh failed: %v", f.tag(), err)
		}
	}
	return settled, settledDetail
}

func (s *LinkService) closeTab(f *Flow, tab driven.Tab) {
	if tab.Closed() {
		return
	}
	if err := tab.Close(); err != nil {
		logger.Debug("%s close tab: %v", f.tag(), err)
	}
}

// guard converts a panic in a race participant into a failed outcome.
func (s *LinkService) guard(ctx context.Context, f *Flow, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("%s panic: %v", f.tag(), r)
			s.resolve(ctx, f, domain.OutcomeFailed, fmt.Sprintf("panic: %v", r))
		}
	}()
	fn()
}

func redirectDetail(href string) string {
	ret, ok := domain.ParseOAuthReturn(href)
	if !ok {
		return "original page navigated to " + href
	}
	if ret.Success {
		return fmt.Sprintf("backend reported success for %q in the original page", ret.Provider)
	}
	return fmt.Sprintf("backend reported %q in the original page", ret.Error)
}

// Disconnect unlinks a provider.
func (s *LinkService) Disconnect(ctx context.Context, provider domain.Provider) domain.FlowResult {
	return s.mutate(ctx, provider, domain.FlowDisconnect, func(token string) error {
		return s.backend.Disconnect(ctx, provider, token)
	})
}

// RefreshProviderTokens asks the backend to refresh the provider's OAuth tokens.
func (s *LinkService) RefreshProviderTokens(ctx context.Context, provider domain.Provider) domain.FlowResult {
	return s.mutate(ctx, provider, domain.FlowTokenRefresh, func(token string) error {
		return s.backend.RefreshProviderTokens(ctx, provider, token)
	})
}

// mutate runs a token-gated backend mutation for a connected provider.
func (s *LinkService) mutate(
	ctx context.Context,
	provider domain.Provider,
	kind domain.FlowKind,
	call func(token string) error,
) (result domain.FlowResult) {
	started := time.Now()
	id := uuid.NewString()
	tag := fmt.Sprintf("[%s %s %s]", kind, shortID(id), provider)

	finish := func(outcome domain.Outcome, detail string) domain.FlowResult {
		r := domain.NewFlowResult(id, provider, kind, outcome, started)
		r.Detail = detail
		s.record(ctx, &r)
		return r
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("%s panic: %v", tag, r)
			result = finish(domain.OutcomeFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	if !s.session.Cache().Current().Has(provider) {
		logger.Info("%s not connected", tag)
		return finish(domain.OutcomeNotConnected, "")
	}

	token, err := s.session.Tokens().Ensure(ctx)
	if err != nil {
		logger.Warn("%s no security token: %v", tag, err)
		return finish(domain.OutcomeTokenUnavailable, err.Error())
	}

	if err := call(token); err != nil {
		logger.Warn("%s rejected: %v", tag, err)
		s.session.Tokens().Invalidate()
		return finish(domain.OutcomeRejected, err.Error())
	}

	success := domain.OutcomeRefreshed
	if kind == domain.FlowDisconnect {
		success = domain.OutcomeDisconnected
		if _, err := s.session.Cache().Refresh(ctx); err != nil {
			logger.Warn("%s disconnected but account refresh failed: %v", tag, err)
		}
	}
	logger.Info("%s %s", tag, success)
	return finish(success, "")
}

// RefreshConnectedProviders re-reads the connected accounts from the backend.
func (s *LinkService) RefreshConnectedProviders(ctx context.Context) error {
	_, err := s.session.Cache().Refresh(ctx)
	return err
}

// ConnectedProviders returns the last known snapshot, sorted.
func (s *LinkService) ConnectedProviders() []domain.Provider {
	return s.session.Cache().Current().Slice()
}

// ConnectedAccounts returns the accounts from the last successful fetch.
func (s *LinkService) ConnectedAccounts() []domain.ConnectedAccount {
	return s.session.Cache().Accounts()
}

// AccountDetails returns the backend's record for a linked provider.
func (s *LinkService) AccountDetails(ctx context.Context, provider domain.Provider) (*domain.ConnectedAccount, error) {
	account, err := s.backend.AccountDetails(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("account details for %s: %w", provider, err)
	}
	return account, nil
}

// record writes a settled flow to the journal. Failures never change the outcome.
func (s *LinkService) record(ctx context.Context, result *domain.FlowResult) {
	if s.journal == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("flow journal panic: %v", r)
		}
	}()
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.journal.Record(recordCtx, result); err != nil {
		logger.Warn("record flow %s: %v", result.FlowID, err)
		return
	}
	if err := s.journal.Prune(recordCtx, journalRetention); err != nil {
		logger.Debug("prune flow journal: %v", err)
	}
}
