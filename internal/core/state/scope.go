// Package state holds the per-session stores of the web front end. Each
// browser session owns one Scope, opened at login (or on the first request
// that presents valid cookies) and closed at logout, on an authentication
// failure or when it sits idle too long.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

// Registrar is a feature module whose bus subscriptions live as long as the scope.
type Registrar interface {
	Register() error
	Unregister()
	IsRegistered() bool
}

// Options carries the collaborators of a scope.
type Options struct {
	Bus     *eventbus.Bus
	Channel ports.ChannelManager
	Loader  ports.UserLoader
	Log     zerolog.Logger
}

// Scope is the explicit context object replacing process-wide UI stores.
type Scope struct {
	id      string
	bus     *eventbus.Bus
	channel ports.ChannelManager
	log     zerolog.Logger

	Users  *UserStore
	Toasts *ToastStore
	Modals *ModalStore
	Search *SearchHistory
	Tables *Selections

	mu         sync.Mutex
	token      string
	generation uint64
	lastSeen   time.Time
	closed     bool
	registrars []Registrar
	done       chan struct{}
}

// NewScope builds an unauthenticated scope.
func NewScope(id string, opts Options) *Scope {
	return &Scope{
		id:       id,
		bus:      opts.Bus,
		channel:  opts.Channel,
		log:      opts.Log.With().Str("scope_id", id).Logger(),
		Users:    NewUserStore(opts.Loader),
		Toasts:   NewToastStore(),
		Modals:   NewModalStore(),
		Search:   NewSearchHistory(),
		Tables:   NewSelections(),
		lastSeen: time.Now(),
		done:     make(chan struct{}),
	}
}

func (s *Scope) ID() string { return s.id }

// Bus returns the event bus feature handlers of this scope subscribe to.
func (s *Scope) Bus() *eventbus.Bus { return s.bus }

// Done is closed when the scope closes. Background work started on behalf of
// the scope stops when it fires.
func (s *Scope) Done() <-chan struct{} { return s.done }

// Token returns the access token the scope is bound to.
func (s *Scope) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Generation increases every time the scope is reset. Work decided on an
// older generation must not be applied.
func (s *Scope) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Closed reports whether Close has run.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Touch records activity at now.
func (s *Scope) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

// LastSeen returns the time of the last recorded activity.
func (s *Scope) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Attach registers feature modules and keeps them so Close can unregister them.
func (s *Scope) Attach(modules ...Registrar) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrScopeClosed
	}
	s.registrars = append(s.registrars, modules...)
	s.mu.Unlock()

	var errs []error
	for _, m := range modules {
		if err := m.Register(); err != nil {
			errs = append(errs, fmt.Errorf("attach %T: %w", m, err))
		}
	}
	return errors.Join(errs...)
}

// BindToken binds the scope to token. A different token invalidates the
// cached user and replaces the real-time connection.
func (s *Scope) BindToken(ctx context.Context, token string) {
	s.mu.Lock()
	if s.closed || token == "" || token == s.token {
		s.mu.Unlock()
		return
	}
	previous := s.token
	s.token = token
	s.mu.Unlock()

	if previous != "" {
		if err := s.Users.Invalidate(ctx); err != nil {
			s.log.Warn().Err(err).Msg("failed to forget cached user")
		}
	}
	if s.channel != nil && !s.channel.Ensure(token) {
		s.log.Warn().Msg("real-time channel unavailable")
	}
}

// User returns the account of the scope, loading it when needed. If the scope
// is reset while the load is in flight the result is dropped.
func (s *Scope) User(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	token, gen, closed := s.token, s.generation, s.closed
	s.mu.Unlock()

	if closed {
		return nil, domain.ErrScopeClosed
	}
	return s.Users.Load(ctx, token, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.closed && s.generation == gen && s.token == token
	})
}

// Reset returns the scope to the unauthenticated state: the user, toasts,
// selections, search history and pending confirmations are dropped and the
// real-time channel is closed. Feature modules stay attached.
func (s *Scope) Reset(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.generation++
	s.mu.Unlock()

	if err := s.Users.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to forget cached user")
	}
	s.Toasts.Clear()
	s.Tables.Clear()
	s.Search.Clear()
	s.Modals.CancelAll()
	if s.channel != nil {
		s.channel.Disconnect()
	}
}

// Close resets the scope and unregisters every attached module. It is idempotent.
func (s *Scope) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	registrars := s.registrars
	s.registrars = nil
	s.mu.Unlock()

	s.Reset(ctx)
	for _, r := range registrars {
		r.Unregister()
	}
	if s.bus != nil {
		s.bus.Clear()
	}
	close(s.done)
	s.log.Debug().Msg("scope closed")
}

type scopeKey struct{}

// ContextWithScope returns a copy of ctx carrying s.
func ContextWithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the scope stored by ContextWithScope.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}
