package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
)

// Factory builds and wires a new scope for a session ID.
type Factory func(id string) (*Scope, error)

// Registry owns every open scope, keyed by session ID.
type Registry struct {
	factory Factory
	log     zerolog.Logger

	mu     sync.Mutex
	scopes map[string]*Scope
}

// NewRegistry returns an empty registry creating scopes with factory.
func NewRegistry(factory Factory, log zerolog.Logger) *Registry {
	return &Registry{
		factory: factory,
		log:     log.With().Str("component", "scope_registry").Logger(),
		scopes:  make(map[string]*Scope),
	}
}

// Get returns the open scope for id.
func (r *Registry) Get(id string) (*Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[id]
	return s, ok
}

// Open returns the scope for id, creating it when absent.
func (r *Registry) Open(id string) (*Scope, error) {
	if id == "" {
		return nil, fmt.Errorf("open scope: empty session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.scopes[id]; ok {
		return s, nil
	}
	s, err := r.factory(id)
	if err != nil {
		return nil, fmt.Errorf("open scope: %w", err)
	}
	r.scopes[id] = s
	metrics.ScopesActive.Set(float64(len(r.scopes)))
	return s, nil
}

// Close closes and forgets the scope for id. Unknown IDs are ignored.
func (r *Registry) Close(ctx context.Context, id string) {
	r.mu.Lock()
	s, ok := r.scopes[id]
	delete(r.scopes, id)
	metrics.ScopesActive.Set(float64(len(r.scopes)))
	r.mu.Unlock()

	if ok {
		s.Close(ctx)
	}
}

// CloseAll closes every scope, e.g. on shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	scopes := r.scopes
	r.scopes = make(map[string]*Scope)
	metrics.ScopesActive.Set(0)
	r.mu.Unlock()

	for _, s := range scopes {
		s.Close(ctx)
	}
}

// Len returns the number of open scopes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

// EvictIdle closes scopes without activity since now-ttl and returns how many
// were closed.
func (r *Registry) EvictIdle(ctx context.Context, now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)

	r.mu.Lock()
	var idle []*Scope
	for id, s := range r.scopes {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(r.scopes, id)
		}
	}
	metrics.ScopesActive.Set(float64(len(r.scopes)))
	r.mu.Unlock()

	for _, s := range idle {
		s.Close(ctx)
	}
	return len(idle)
}

// RunEviction calls EvictIdle every interval until ctx is cancelled.
func (r *Registry) RunEviction(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.EvictIdle(ctx, now, ttl); n > 0 {
				r.log.Info().Int("evicted", n).Msg("idle scopes closed")
			}
		}
	}
}

// Deliver dispatches ev on the bus of scope id.
func (r *Registry) Deliver(ctx context.Context, id string, ev domain.NotificationEvent) (eventbus.Report, error) {
	s, ok := r.Get(id)
	if !ok || s.Closed() {
		return eventbus.Report{}, domain.ErrScopeClosed
	}
	return s.Bus().Dispatch(ContextWithScope(ctx, s), ev), nil
}
