package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// pushServer is a minimal push server recording every accepted socket by token.
type pushServer struct {
	*httptest.Server
	mu    sync.Mutex
	conns map[string]*websocket.Conn
	auths []string
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{conns: make(map[string]*websocket.Conn)}
	upgrader := websocket.Upgrader{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conns[token] = ws
		ps.auths = append(ps.auths, r.Header.Get("Authorization"))
		ps.mu.Unlock()
		// Drain until the client goes away.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pushServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ps.URL, "http")
}

func (ps *pushServer) conn(token string) *websocket.Conn {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.conns[token]
}

func (ps *pushServer) send(t *testing.T, token, frame string) {
	t.Helper()
	ws := ps.conn(token)
	require.NotNil(t, ws)
	_ = ws.WriteMessage(websocket.TextMessage, []byte(frame))
}

type recorder struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func (r *recorder) listen(ev domain.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.ID)
	}
	return out
}

func frame(id string) string {
	return `{"id":"` + id + `","type":"order.created","payload":{"order_id":"42","order_number":"PO-42"}}`
}

func TestManager_ReplacingTokenClosesOldConnection(t *testing.T) {
	ps := newPushServer(t)
	rec := &recorder{}
	m := NewManager(Options{URL: ps.wsURL()}, rec.listen, zerolog.Nop())
	t.Cleanup(m.Disconnect)

	first := m.Connect("token-a")
	require.NotNil(t, first)
	require.Eventually(t, func() bool { return first.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)

	second := m.Connect("token-b")
	require.NotNil(t, second)
	require.Eventually(t, func() bool { return second.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("old connection still running")
	}
	assert.Same(t, second, m.Get())
	assert.Equal(t, "token-b", m.Get().Token())

	ps.send(t, "token-a", frame("stale"))
	ps.send(t, "token-b", frame("fresh"))

	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"fresh"}, rec.ids())

	ps.mu.Lock()
	defer ps.mu.Unlock()
	assert.Contains(t, ps.auths, "Bearer token-b")
}

func TestManager_EnsureKeepsMatchingConnection(t *testing.T) {
	ps := newPushServer(t)
	m := NewManager(Options{URL: ps.wsURL()}, func(domain.NotificationEvent) {}, zerolog.Nop())
	t.Cleanup(m.Disconnect)

	require.True(t, m.Ensure("token-a"))
	first := m.Get()
	require.True(t, m.Ensure("token-a"))
	assert.Same(t, first, m.Get())

	require.True(t, m.Ensure("token-b"))
	assert.NotSame(t, first, m.Get())
}

func TestManager_DisconnectWithoutConnectionIsNoop(t *testing.T) {
	m := NewManager(Options{URL: "ws://127.0.0.1:1"}, func(domain.NotificationEvent) {}, zerolog.Nop())

	assert.NotPanics(t, func() {
		m.Disconnect()
		m.Disconnect()
	})
	assert.Nil(t, m.Get())
}

func TestManager_ConnectFailsToConstruct(t *testing.T) {
	m := NewManager(Options{URL: "http://not-a-websocket"}, func(domain.NotificationEvent) {}, zerolog.Nop())

	assert.Nil(t, m.Connect("token"))
	assert.Nil(t, m.Get())
	assert.False(t, m.Ensure("token"))

	m = NewManager(Options{URL: "ws://localhost"}, func(domain.NotificationEvent) {}, zerolog.Nop())
	assert.Nil(t, m.Connect(""))
}

func TestManager_RejectsUnknownAndInvalidFrames(t *testing.T) {
	ps := newPushServer(t)
	rec := &recorder{}
	m := NewManager(Options{URL: ps.wsURL()}, rec.listen, zerolog.Nop())
	t.Cleanup(m.Disconnect)

	c := m.Connect("token-a")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)

	ps.send(t, "token-a", `{"id":"x","type":"order.teleported","payload":{}}`)
	ps.send(t, "token-a", `{"id":"y","type":"order.created","payload":{"order_number":"PO-1"}}`)
	ps.send(t, "token-a", `not json`)
	ps.send(t, "token-a", frame("ok"))

	require.Eventually(t, func() bool { return len(rec.ids()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ok"}, rec.ids())
}

func TestManager_GivesUpAfterBoundedAttempts(t *testing.T) {
	m := NewManager(Options{
		URL:              "ws://127.0.0.1:1/socket",
		MaxAttempts:      2,
		BaseDelay:        time.Millisecond,
		MaxDelay:         2 * time.Millisecond,
		HandshakeTimeout: 200 * time.Millisecond,
	}, func(domain.NotificationEvent) {}, zerolog.Nop())

	c := m.Connect("token-a")
	require.NotNil(t, c)

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("dial loop did not give up")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

func TestOptions_BackoffIsLinearAndCapped(t *testing.T) {
	o := Options{}.withDefaults()

	assert.Equal(t, time.Second, o.backoff(1))
	assert.Equal(t, 3*time.Second, o.backoff(3))
	assert.Equal(t, 5*time.Second, o.backoff(9))
	assert.Equal(t, 5, o.MaxAttempts)
	assert.Equal(t, 10*time.Second, o.HandshakeTimeout)
}
