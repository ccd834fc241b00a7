package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// ListAccountsInput is the input schema for the list_connected_accounts tool.
type ListAccountsInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"re-read the connected accounts from the backend first"`
}

// ListAccountsOutput is the output schema for the list_connected_accounts tool.
type ListAccountsOutput struct {
	Providers []ProviderStatus `json:"providers"`
	Connected int              `json:"connected"`
	Stale     bool             `json:"stale,omitempty"`
	Warning   string           `json:"warning,omitempty"`
}

// ProviderStatus is one provider's link state.
type ProviderStatus struct {
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// ProviderInput names a provider.
type ProviderInput struct {
	Provider string `json:"provider" jsonschema:"provider identifier, e.g. linkedin, youtube, spotify or x"`
}

// FlowOutput describes a settled connect, disconnect or token refresh.
type FlowOutput struct {
	FlowID     string `json:"flow_id,omitempty"`
	Provider   string `json:"provider"`
	Kind       string `json:"kind"`
	Outcome    string `json:"outcome"`
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// AccountOutput is the output schema for the account_details tool.
type AccountOutput struct {
	Provider    string `json:"provider"`
	Connected   bool   `json:"connected"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	ConnectedAt string `json:"connected_at,omitempty"`
	Active      bool   `json:"active"`
}

// HistoryInput is the input schema for the flow_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of flows to return (default 20)"`
}

// HistoryOutput is the output schema for the flow_history tool.
type HistoryOutput struct {
	Flows []FlowOutput `json:"flows"`
	Count int          `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_connected_accounts",
		Description: "List the known providers and whether each one is linked",
	}, s.handleListAccounts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "connect_account",
		Description: "Link a provider account. Opens the authorization page in the user's browser " +
			"and waits until the user finishes, closes the tab or the flow times out",
	}, s.handleConnect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "disconnect_account",
		Description: "Unlink a provider account",
	}, s.handleDisconnect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "refresh_account_tokens",
		Description: "Ask the backend to refresh a linked provider's OAuth tokens",
	}, s.handleRefreshTokens)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "account_details",
		Description: "Show the backend's record for a linked provider",
	}, s.handleAccountDetails)

	if s.ports.History != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "flow_history",
			Description: "List recent connect, disconnect and token refresh attempts, most recent first",
		}, s.handleHistory)
	}
}

func (s *Server) handleListAccounts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListAccountsInput,
) (*mcp.CallToolResult, ListAccountsOutput, error) {
	var output ListAccountsOutput
	if input.Refresh {
		if err := s.ports.Link.RefreshConnectedProviders(ctx); err != nil {
			output.Stale = true
			output.Warning = fmt.Sprintf("showing the last known accounts: %v", err)
		}
	}

	connected := domain.NewProviderSet(s.ports.Link.ConnectedProviders()...)
	seen := make(map[domain.Provider]bool)
	for _, p := range domain.KnownProviders() {
		seen[p] = true
		output.Providers = append(output.Providers, providerStatus(p, connected.Has(p)))
	}
	// Providers the backend linked that this client does not list by default.
	for _, p := range connected.Slice() {
		if !seen[p] {
			output.Providers = append(output.Providers, providerStatus(p, true))
		}
	}
	output.Connected = connected.Len()

	return nil, output, nil
}

func (s *Server) handleConnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProviderInput,
) (*mcp.CallToolResult, FlowOutput, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, FlowOutput{}, fmt.Errorf("%w: %q", err, input.Provider)
	}
	return nil, flowOutput(s.ports.Link.Connect(ctx, provider)), nil
}

func (s *Server) handleDisconnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProviderInput,
) (*mcp.CallToolResult, FlowOutput, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, FlowOutput{}, fmt.Errorf("%w: %q", err, input.Provider)
	}
	return nil, flowOutput(s.ports.Link.Disconnect(ctx, provider)), nil
}

func (s *Server) handleRefreshTokens(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProviderInput,
) (*mcp.CallToolResult, FlowOutput, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, FlowOutput{}, fmt.Errorf("%w: %q", err, input.Provider)
	}
	return nil, flowOutput(s.ports.Link.RefreshProviderTokens(ctx, provider)), nil
}

func (s *Server) handleAccountDetails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProviderInput,
) (*mcp.CallToolResult, AccountOutput, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, AccountOutput{}, fmt.Errorf("%w: %q", err, input.Provider)
	}

	account, err := s.ports.Link.AccountDetails(ctx, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, AccountOutput{Provider: string(provider)}, nil
	}
	if err != nil {
		return nil, AccountOutput{}, fmt.Errorf("getting account details: %w", err)
	}

	output := AccountOutput{
		Provider:  string(provider),
		Connected: true,
		Username:  account.Username,
		Email:     account.Email,
		Active:    account.IsActive,
	}
	if !account.ConnectedAt.IsZero() {
		output.ConnectedAt = account.ConnectedAt.UTC().Format(time.RFC3339)
	}
	return nil, output, nil
}

func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	// The history service applies its own default to a non-positive limit.
	results, err := s.ports.History.Recent(ctx, input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("reading flow history: %w", err)
	}

	output := HistoryOutput{
		Flows: make([]FlowOutput, len(results)),
		Count: len(results),
	}
	for i := range results {
		output.Flows[i] = flowOutput(results[i])
	}
	return nil, output, nil
}

func providerStatus(p domain.Provider, connected bool) ProviderStatus {
	return ProviderStatus{Provider: string(p), Name: p.DisplayName(), Connected: connected}
}

func flowOutput(r domain.FlowResult) FlowOutput {
	return FlowOutput{
		FlowID:     r.FlowID,
		Provider:   string(r.Provider),
		Kind:       string(r.Kind),
		Outcome:    string(r.Outcome),
		OK:         r.OK,
		Message:    r.Outcome.Description(),
		Detail:     r.Detail,
		DurationMS: r.Duration().Milliseconds(),
	}
}
