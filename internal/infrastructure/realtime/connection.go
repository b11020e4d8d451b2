package realtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// State is the lifecycle state of a connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Listener receives every decoded event of a connection.
type Listener func(ev domain.NotificationEvent)

// Connection is one authenticated websocket session with the push server.
// Once Close returns its listener never fires again.
type Connection struct {
	token   string
	url     string
	opts    Options
	decoder *Decoder
	log     zerolog.Logger

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// mu guards the listener and the socket; emit holds it shared so Close
	// waits for an in-flight delivery before detaching.
	mu       sync.RWMutex
	listener Listener
	ws       *websocket.Conn
}

func newConnection(token, url string, opts Options, decoder *Decoder, listener Listener, log zerolog.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		token:    token,
		url:      url,
		opts:     opts,
		decoder:  decoder,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		listener: listener,
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// Token returns the credential the connection authenticates with.
func (c *Connection) Token() string { return c.token }

// State returns the current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Done is closed once the connection's goroutine has exited.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Close detaches the listener and closes the transport. It is idempotent and
// does not wait for the network.
func (c *Connection) Close() {
	c.cancel()

	c.mu.Lock()
	c.listener = nil
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		_ = ws.Close()
	}
}

// run dials with bounded retries, then reads frames until the socket drops,
// after which it dials again with a fresh retry budget.
func (c *Connection) run() {
	defer close(c.done)
	defer c.state.Store(int32(StateDisconnected))

	for c.ctx.Err() == nil {
		ws, err := c.dial()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.log.Error().Err(err).Msg("real-time channel gave up connecting")
			}
			return
		}
		if !c.attach(ws) {
			_ = ws.Close()
			return
		}

		metrics.ChannelsConnected.Inc()
		c.state.Store(int32(StateConnected))
		c.log.Info().Msg("real-time channel connected")

		c.readLoop(ws)

		metrics.ChannelsConnected.Dec()
		c.detach(ws)
		if c.ctx.Err() == nil {
			c.log.Warn().Msg("real-time channel dropped, reconnecting")
		}
	}
}

func (c *Connection) dial() (*websocket.Conn, error) {
	c.state.Store(int32(StateConnecting))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(c.ctx, c.opts.HandshakeTimeout)
		ws, resp, err := c.opts.Dialer.DialContext(dialCtx, c.url, header)
		cancel()
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			metrics.ChannelDialsTotal.WithLabelValues("ok").Inc()
			return ws, nil
		}
		if c.ctx.Err() != nil {
			return nil, c.ctx.Err()
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			metrics.ChannelDialsTotal.WithLabelValues("unauthorized").Inc()
			return nil, &domain.APIError{Kind: domain.KindAuth, Status: resp.StatusCode, Message: "real-time handshake rejected", Cause: err}
		}

		metrics.ChannelDialsTotal.WithLabelValues("error").Inc()
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("real-time dial failed")

		if attempt == c.opts.MaxAttempts {
			break
		}
		timer := time.NewTimer(c.opts.backoff(attempt))
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return nil, c.ctx.Err()
		case <-timer.C:
		}
	}
	return nil, &domain.APIError{Kind: domain.KindNetwork, Message: "real-time channel unreachable", Cause: lastErr}
}

func (c *Connection) attach(ws *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return false
	}
	c.ws = ws
	return true
}

func (c *Connection) detach(ws *websocket.Conn) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.mu.Unlock()
	_ = ws.Close()
	c.state.Store(int32(StateConnecting))
}

func (c *Connection) readLoop(ws *websocket.Conn) {
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("real-time read failed")
			}
			return
		}

		ev, err := c.decoder.Decode(frame)
		if err != nil {
			c.log.Warn().Err(err).Msg("real-time frame rejected")
			continue
		}
		c.emit(ev)
	}
}

func (c *Connection) emit(ev domain.NotificationEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.listener == nil || c.ctx.Err() != nil {
		return
	}
	c.listener(ev)
}
