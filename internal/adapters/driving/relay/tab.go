package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
)

// Ensure tab implements the interface.
var _ driven.Tab = (*tab)(nil)

const closeWriteWait = time.Second

// tab is the relay's view of one spawned browser tab.
// A tab is open until a socket has connected and every socket has since gone away.
type tab struct {
	window string

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	seen  bool
}

func newTab(window string) *tab {
	return &tab{window: window, conns: make(map[*websocket.Conn]struct{})}
}

func (t *tab) attach(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[conn] = struct{}{}
	t.seen = true
}

func (t *tab) detach(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, conn)
}

// Closed reports whether the tab connected and then dropped every socket.
func (t *tab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen && len(t.conns) == 0
}

// Close sends a close frame on every socket so the completion page can close itself.
func (t *tab) Close() error {
	t.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "flow settled")
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
	}
	return nil
}

func (t *tab) connections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
