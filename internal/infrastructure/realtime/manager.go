// Package realtime maintains the push-notification websocket of a session.
package realtime

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts      = 5
	defaultBaseDelay        = time.Second
	defaultMaxDelay         = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
)

// Options configures dialing. Zero values fall back to the defaults.
type Options struct {
	URL              string
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	HandshakeTimeout time.Duration
	Dialer           *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = defaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defaultMaxDelay
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: o.HandshakeTimeout,
		}
	}
	return o
}

// backoff returns the delay after the given failed attempt: attempt × base,
// capped at the maximum.
func (o Options) backoff(attempt int) time.Duration {
	return min(time.Duration(attempt)*o.BaseDelay, o.MaxDelay)
}

// Manager keeps at most one live connection, bound to the current token.
type Manager struct {
	opts     Options
	listener Listener
	decoder  *Decoder
	log      zerolog.Logger

	mu   sync.Mutex
	conn *Connection
}

// NewManager returns a manager delivering decoded events to listener.
func NewManager(opts Options, listener Listener, log zerolog.Logger) *Manager {
	return &Manager{
		opts:     opts.withDefaults(),
		listener: listener,
		decoder:  NewDecoder(),
		log:      log,
	}
}

// Connect tears down any existing connection and starts a new one
// authenticated by token. The dial happens in the background; Connect returns
// nil when the connection cannot even be constructed.
func (m *Manager) Connect(token string) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()

	target, err := m.endpoint(token)
	if err != nil {
		m.log.Error().Err(err).Msg("real-time channel not created")
		return nil
	}

	c := newConnection(token, target, m.opts, m.decoder, m.listener, m.log)
	m.conn = c
	go c.run()
	return c
}

// Ensure connects with token unless the live connection already uses it.
func (m *Manager) Ensure(token string) bool {
	m.mu.Lock()
	current := m.conn
	m.mu.Unlock()

	if current != nil && current.Token() == token && current.State() != StateDisconnected {
		return true
	}
	return m.Connect(token) != nil
}

// Disconnect closes the live connection, if any.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

// Get returns the live connection or nil. It never creates one.
func (m *Manager) Get() *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *Manager) closeLocked() {
	if m.conn == nil {
		return
	}
	m.conn.Close()
	m.conn = nil
}

func (m *Manager) endpoint(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	u, err := url.Parse(m.opts.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", errors.New("real-time url must use ws or wss")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
