//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package relay

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/services"
)

const testOrigin = "http://backend.test"

func startServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(0)
	s.locationHold = 50 * time.Millisecond
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

type collector struct {
	mu   sync.Mutex
	msgs []domain.WindowMessage
}

func (c *collector) handle(msg domain.WindowMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) all() []domain.WindowMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.WindowMessage(nil), c.msgs...)
}

func dial(t *testing.T, s *Server, window string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(s.URL(), "http://", "ws://", 1) + "ws?window=" + window
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {testOrigin}})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(0)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")

	assert.NotZero(t, s.Port())
	assert.Equal(t, s.URL(), s.Href())
	assert.True(t, strings.HasPrefix(s.URL(), "http://127.0.0.1:"))

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestServer_Start_PortInUseFallsBack(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	busyPort := busy.Addr().(*net.TCPAddr).Port

	s := NewServer(busyPort)
	if err := s.Start(); err != nil {
		t.Skipf("no free port in relay range: %v", err)
	}
	defer s.Stop(context.Background())

	assert.NotEqual(t, busyPort, s.Port())
	assert.GreaterOrEqual(t, s.Port(), PortRangeStart)
	assert.LessOrEqual(t, s.Port(), PortRangeEnd)
}

func TestServer_SocketMessagesArePublished(t *testing.T) {
	s := startServer(t)
	c := &collector{}
	defer s.Subscribe(nil, c.handle)()

	conn := dial(t, s, "spotify-auth")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"oauth-success","provider":"spotify"}`)))

	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, 5*time.Millisecond)
	msg := c.all()[0]
	assert.Equal(t, "spotify-auth", msg.Window)
	assert.Equal(t, testOrigin, msg.Origin)
	assert.JSONEq(t, `{"type":"oauth-success","provider":"spotify"}`, string(msg.Data))
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestServer_TabLifecycle(t *testing.T) {
	s := startServer(t)
	tab := s.Track(domain.ProviderX.WindowName())

	assert.False(t, tab.Closed(), "a tab that never reported is open")

	conn := dial(t, s, domain.ProviderX.WindowName())
	require.Eventually(t, func() bool { return s.tabFor("x-auth").connections() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, tab.Closed())

	require.NoError(t, conn.Close())
	require.Eventually(t, tab.Closed, time.Second, 5*time.Millisecond)
}

func TestServer_TrackReplacesPreviousHandle(t *testing.T) {
	s := startServer(t)
	first := s.Track("linkedin-auth")
	conn := dial(t, s, "linkedin-auth")
	require.Eventually(t, func() bool { return s.tabFor("linkedin-auth").connections() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, first.Closed, time.Second, 5*time.Millisecond)

	second := s.Track("linkedin-auth")
	assert.False(t, second.Closed(), "a new attempt starts with a fresh tab")
}

func TestServer_TabCloseSendsCloseFrame(t *testing.T) {
	s := startServer(t)
	tab := s.Track("youtube-auth")
	conn := dial(t, s, "youtube-auth")
	require.Eventually(t, func() bool { return s.tabFor("youtube-auth").connections() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, tab.Close())

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	require.Eventually(t, tab.Closed, time.Second, 5*time.Millisecond)
}

func TestServer_PostMessage(t *testing.T) {
	s := startServer(t)
	c := &collector{}
	defer s.Subscribe(func(m domain.WindowMessage) bool { return m.Window == "x-auth" }, c.handle)()

	req, err := http.NewRequest(http.MethodPost, s.URL()+"message?window=x-auth", strings.NewReader("oauth-cancel"))
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	require.Len(t, c.all(), 1)
	assert.Equal(t, "oauth-cancel", string(c.all()[0].Data))
	assert.Equal(t, testOrigin, c.all()[0].Origin)
}

func TestServer_PostMessage_Preflight(t *testing.T) {
	s := startServer(t)

	req, err := http.NewRequest(http.MethodOptions, s.URL()+"message", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", testOrigin)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestServer_PostMessage_TooLarge(t *testing.T) {
	s := startServer(t)

	body := strings.Repeat("a", maxMessageSize+10)
	resp, err := http.Post(s.URL()+"message", "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServer_Landing(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(s.URL())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "linkdeck is waiting")
	assert.Equal(t, s.URL(), s.Href())
}

func TestServer_LandingRedirectChangesLocation(t *testing.T) {
	s := startServer(t)
	start := s.Href()

	resp, err := http.Get(s.URL() + "?oauth_error=access_denied&oauth_provider=x")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Contains(t, string(body), "X reported: access_denied")
	assert.NotEqual(t, start, s.Href())
	assert.True(t, domain.IsOAuthReturn(s.Href()))

	require.Eventually(t, func() bool { return s.Href() == start }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), s.Redirects(), "restoring the clean address is not a redirect")
}

func TestServer_RedirectGuardIgnoresReturnShownBeforeStart(t *testing.T) {
	s := NewServer(0)
	s.locationHold = 300 * time.Millisecond
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	resp, err := http.Get(s.URL() + "?oauth_error=denied&oauth_provider=x")
	require.NoError(t, err)
	resp.Body.Close()
	require.True(t, domain.IsOAuthReturn(s.Href()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	go services.NewRedirectGuard(50*time.Millisecond).Watch(ctx, s, s.Redirects(), func(href string) {
		got <- href
	})

	select {
	case href := <-got:
		t.Fatalf("guard fired for an earlier return: %s", href)
	case <-time.After(600 * time.Millisecond):
	}
	require.Equal(t, s.URL(), s.Href(), "hold expired and the clean address is back")

	resp, err = http.Get(s.URL() + "?oauth_success=true&oauth_provider=x")
	require.NoError(t, err)
	resp.Body.Close()

	select {
	case href := <-got:
		assert.Contains(t, href, "oauth_success=true")
	case <-time.After(time.Second):
		t.Fatal("guard missed a return that arrived after it started")
	}
}

func TestServer_Health(t *testing.T) {
	s := startServer(t)
	defer s.Subscribe(nil, func(domain.WindowMessage) {})()

	resp, err := http.Get(s.URL() + "healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["subscriptions"])
}

func TestLandingText(t *testing.T) {
	title, _ := landingText(domain.OAuthReturn{}, false)
	assert.Equal(t, "linkdeck is waiting", title)

	_, msg := landingText(domain.OAuthReturn{Success: true, Provider: domain.ProviderLinkedIn}, true)
	assert.Contains(t, msg, "LinkedIn was linked in this window")

	_, msg = landingText(domain.OAuthReturn{Error: "denied"}, true)
	assert.Contains(t, msg, "The provider reported: denied")
}

func TestLandingHTML_Escapes(t *testing.T) {
	page := landingHTML("<b>title</b>", `"quoted" & <script>`)

	assert.Contains(t, page, "&lt;b&gt;title&lt;/b&gt;")
	assert.NotContains(t, page, "<script>")
}

func TestFindAvailablePort(t *testing.T) {
	port, err := FindAvailablePort(PortRangeStart, PortRangeEnd)
	if err != nil {
		t.Skip("relay range fully occupied")
	}
	assert.GreaterOrEqual(t, port, PortRangeStart)

	_, err = FindAvailablePort(10, 5)
	assert.Error(t, err)
}
