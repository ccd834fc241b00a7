package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.LinkBackend = (*Client)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 4 << 10

	// csrfCookie is the cookie Django sets alongside the token endpoint.
	csrfCookie = "csrftoken"
)

// API paths relative to the backend base URL.
const (
	pathConnectedAccounts = "/api/oauth/connected-accounts/"
	pathCSRF              = "/api/auth/csrf/"
	pathDisconnect        = "/api/oauth/disconnect/%s/"
	pathAccount           = "/api/oauth/account/%s/"
	pathRefresh           = "/api/oauth/refresh/%s/"
)

// Client talks to the backend-of-record.
type Client struct {
	base        *url.URL
	origin      string
	csrfHeader  string
	http        *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a backend client from settings.
// The session cookie is seeded into the jar when a session ID is configured.
func NewClient(settings domain.BackendSettings) (*Client, error) {
	origin := settings.Origin()
	if origin == "" {
		return nil, fmt.Errorf("%w: backend url %q", domain.ErrInvalidInput, settings.URL)
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(settings.URL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if settings.SessionID != "" && settings.SessionCookie != "" {
		jar.SetCookies(base, []*http.Cookie{{
			Name:  settings.SessionCookie,
			Value: settings.SessionID,
			Path:  "/",
		}})
	}

	csrfHeader := settings.CSRFHeader
	if csrfHeader == "" {
		csrfHeader = domain.DefaultAppSettings().Backend.CSRFHeader
	}

	return &Client{
		base:        base,
		origin:      origin,
		csrfHeader:  csrfHeader,
		http:        &http.Client{Timeout: DefaultTimeout, Jar: jar},
		rateLimiter: NewRateLimiter(settings.RateLimit),
	}, nil
}

// Origin returns the scheme://host[:port] tab messages must come from.
func (c *Client) Origin() string {
	return c.origin
}

// AuthorizationURL returns the page that starts provider authorization.
func (c *Client) AuthorizationURL(p domain.Provider, returnURL string) string {
	return domain.AuthorizationURL(c.base.String(), p, returnURL)
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// wireAccount tolerates empty or non-RFC3339 timestamps.
type wireAccount struct {
	Provider    string `json:"provider"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	ConnectedAt string `json:"connectedAt"`
	IsActive    bool   `json:"isActive"`
}

func (w wireAccount) toDomain() domain.ConnectedAccount {
	a := domain.ConnectedAccount{
		Provider: w.Provider,
		Username: w.Username,
		Email:    w.Email,
		IsActive: w.IsActive,
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, w.ConnectedAt); err == nil {
			a.ConnectedAt = t
			break
		}
	}
	return a
}

// ListConnectedAccounts returns the backend's connected accounts snapshot.
func (c *Client) ListConnectedAccounts(ctx context.Context) ([]domain.ConnectedAccount, error) {
	var body struct {
		statusEnvelope
		Accounts []wireAccount `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, pathConnectedAccounts, "", &body); err != nil {
		return nil, fmt.Errorf("list connected accounts: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("list connected accounts: %w", c.rejected(pathConnectedAccounts, body.Message))
	}

	accounts := make([]domain.ConnectedAccount, 0, len(body.Accounts))
	for _, w := range body.Accounts {
		accounts = append(accounts, w.toDomain())
	}
	return accounts, nil
}

// FetchSecurityToken fetches the anti-forgery token.
// The csrftoken cookie is used when the body does not carry one.
func (c *Client) FetchSecurityToken(ctx context.Context) (string, error) {
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.do(ctx, http.MethodGet, pathCSRF, "", &body); err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	if body.CSRFToken != "" {
		return body.CSRFToken, nil
	}
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == csrfCookie && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("fetch csrf token: %w: no token in response", domain.ErrMalformedResponse)
}

// Disconnect asks the backend to unlink a provider.
func (c *Client) Disconnect(ctx context.Context, p domain.Provider, token string) error {
	path := fmt.Sprintf(pathDisconnect, url.PathEscape(string(p)))
	if err := c.mutate(ctx, path, token); err != nil {
		return fmt.Errorf("disconnect %s: %w", p, err)
	}
	return nil
}

// RefreshProviderTokens asks the backend to refresh the provider's OAuth tokens.
func (c *Client) RefreshProviderTokens(ctx context.Context, p domain.Provider, token string) error {
	path := fmt.Sprintf(pathRefresh, url.PathEscape(string(p)))
	if err := c.mutate(ctx, path, token); err != nil {
		return fmt.Errorf("refresh %s tokens: %w", p, err)
	}
	return nil
}

// AccountDetails returns the linked account for a provider.
// Returns domain.ErrNotFound when the provider is not linked.
func (c *Client) AccountDetails(ctx context.Context, p domain.Provider) (*domain.ConnectedAccount, error) {
	path := fmt.Sprintf(pathAccount, url.PathEscape(string(p)))
	var body struct {
		Account *wireAccount `json:"account"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", &body); err != nil {
		return nil, fmt.Errorf("account details %s: %w", p, err)
	}
	if body.Account == nil {
		return nil, fmt.Errorf("account details %s: %w", p, domain.ErrNotFound)
	}
	account := body.Account.toDomain()
	return &account, nil
}

func (c *Client) mutate(ctx context.Context, path, token string) error {
	var body statusEnvelope
	if err := c.do(ctx, http.MethodPost, path, token, &body); err != nil {
		return err
	}
	if !body.Success {
		return c.rejected(path, body.Message)
	}
	return nil
}

func (c *Client) rejected(path, message string) error {
	return &APIError{StatusCode: http.StatusOK, Message: message, URL: c.endpoint(path)}
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// do sends a JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path, token string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.endpoint(path)
	var reqBody io.Reader
	if method == http.MethodPost {
		reqBody = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(c.csrfHeader, token)
		req.Header.Set("Referer", c.base.String()+"/")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	logger.Debug("backend %s %s -> %d", method, path, resp.StatusCode)

	if err := c.rateLimiter.CheckResponse(resp); err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw), URL: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrMalformedResponse, method, path, err)
	}
	return nil
}

// errorMessage extracts a human-readable message from a DRF-style error body.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, s := range []string{body.Message, body.Detail, body.Error} {
			if s != "" {
				return s
			}
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
