package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for linkdeck resources.
	uriScheme = "linkdeck://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "accounts",
		Name:        "accounts",
		Description: "Providers currently linked, as last reported by the backend",
		MIMEType:    "application/json",
	}, s.handleAccountsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "accounts/{provider}",
		Name:        "account",
		Description: "The backend's record for one linked provider",
		MIMEType:    "application/json",
	}, s.handleAccountResource)
}

// handleAccountsResource returns the cached connected providers.
func (s *Server) handleAccountsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	connected := s.ports.Link.ConnectedProviders()
	infos := make([]ProviderStatus, len(connected))
	for i, p := range connected {
		infos[i] = providerStatus(p, true)
	}
	return jsonResource(req.Params.URI, infos)
}

// handleAccountResource returns one provider's account record.
func (s *Server) handleAccountResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	provider, ok := extractProvider(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	account, err := s.ports.Link.AccountDetails(ctx, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account details: %w", err)
	}
	return jsonResource(req.Params.URI, account)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractProvider extracts the provider from a URI like linkdeck://accounts/{provider}.
func extractProvider(uri string) (domain.Provider, bool) {
	const prefix = uriScheme + "accounts/"

	if !strings.HasPrefix(uri, prefix) {
		return "", false
	}

	provider, err := domain.ParseProvider(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return "", false
	}
	return provider, true
}
