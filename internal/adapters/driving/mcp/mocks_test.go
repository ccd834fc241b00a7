package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// mockLinkService is a mock implementation of driving.LinkService.
type mockLinkService struct {
	connected  []domain.Provider
	refreshErr error
	account    *domain.ConnectedAccount
	accountErr error
	outcome    domain.Outcome

	calls []string
}

var _ driving.LinkService = (*mockLinkService)(nil)

func (m *mockLinkService) result(p domain.Provider, kind domain.FlowKind) domain.FlowResult {
	outcome := m.outcome
	if outcome == "" {
		switch kind {
		case domain.FlowDisconnect:
			outcome = domain.OutcomeDisconnected
		case domain.FlowTokenRefresh:
			outcome = domain.OutcomeRefreshed
		default:
			outcome = domain.OutcomeConnected
		}
	}
	return domain.NewFlowResult("flow-1", p, kind, outcome, time.Now().Add(-time.Second))
}

func (m *mockLinkService) Begin(_ context.Context, _ domain.Provider) driving.PendingFlow {
	return nil
}

func (m *mockLinkService) Connect(_ context.Context, p domain.Provider) domain.FlowResult {
	m.calls = append(m.calls, "connect:"+string(p))
	return m.result(p, domain.FlowConnect)
}

func (m *mockLinkService) Disconnect(_ context.Context, p domain.Provider) domain.FlowResult {
	m.calls = append(m.calls, "disconnect:"+string(p))
	return m.result(p, domain.FlowDisconnect)
}

func (m *mockLinkService) RefreshConnectedProviders(_ context.Context) error {
	m.calls = append(m.calls, "refresh")
	return m.refreshErr
}

func (m *mockLinkService) ConnectedProviders() []domain.Provider {
	return m.connected
}

func (m *mockLinkService) AccountDetails(_ context.Context, _ domain.Provider) (*domain.ConnectedAccount, error) {
	return m.account, m.accountErr
}

func (m *mockLinkService) RefreshProviderTokens(_ context.Context, p domain.Provider) domain.FlowResult {
	m.calls = append(m.calls, "tokens:"+string(p))
	return m.result(p, domain.FlowTokenRefresh)
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	results   []domain.FlowResult
	err       error
	lastLimit int
}

func (m *mockHistoryService) Recent(_ context.Context, limit int) ([]domain.FlowResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}
