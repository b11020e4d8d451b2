// Package eventbus routes decoded notification events to the feature handlers
// registered for their kind.
package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// Handler reacts to one notification event. Implementations must be
// comparable (typically a pointer) so the bus can recognise a handler that is
// registered twice.
type Handler interface {
	HandleEvent(ctx context.Context, ev domain.NotificationEvent) error
}

// Report summarises a single dispatch.
type Report struct {
	Handled int
	Failed  int
}

// Bus is a registry of handlers keyed by event kind. Handlers for a kind run
// in registration order. The bus never mutates handler state; it only keeps
// the registration record.
type Bus struct {
	mu   sync.RWMutex
	subs map[domain.EventKind][]Handler
	log  zerolog.Logger
}

// New returns an empty bus.
func New(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[domain.EventKind][]Handler),
		log:  log.With().Str("component", "eventbus").Logger(),
	}
}

// Register adds h to the handlers of kind. Registering the same handler for the
// same kind again is a no-op.
func (b *Bus) Register(kind domain.EventKind, h Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("register %q: %w", kind, domain.ErrUnknownEventKind)
	}
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return fmt.Errorf("register %q: %w", kind, domain.ErrHandlerNotComparable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.subs[kind] {
		if existing == h {
			return nil
		}
	}
	b.subs[kind] = append(b.subs[kind], h)
	return nil
}

// Unregister removes h from kind. It is a no-op when h is not registered.
func (b *Bus) Unregister(kind domain.EventKind, h Handler) {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subs[kind]
	for i, existing := range handlers {
		if existing != h {
			continue
		}
		// Copy so a dispatch holding the old slice keeps its snapshot intact.
		next := make([]Handler, 0, len(handlers)-1)
		next = append(next, handlers[:i]...)
		next = append(next, handlers[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, kind)
		} else {
			b.subs[kind] = next
		}
		return
	}
}

// IsRegistered reports whether h currently handles kind.
func (b *Bus) IsRegistered(kind domain.EventKind, h Handler) bool {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, existing := range b.subs[kind] {
		if existing == h {
			return true
		}
	}
	return false
}

// Count returns the number of handlers registered for kind.
func (b *Bus) Count(kind domain.EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

// Clear drops every registration.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[domain.EventKind][]Handler)
}

// Dispatch invokes every handler registered for ev.Kind at the moment the
// dispatch starts. A failing or panicking handler is logged and does not stop
// the others. Work a handler starts in the background is not awaited.
func (b *Bus) Dispatch(ctx context.Context, ev domain.NotificationEvent) Report {
	b.mu.RLock()
	handlers := b.subs[ev.Kind]
	b.mu.RUnlock()

	var r Report
	for _, h := range handlers {
		if err := b.invoke(ctx, h, ev); err != nil {
			r.Failed++
			metrics.HandlerFailuresTotal.WithLabelValues(string(ev.Kind)).Inc()
			b.log.Error().
				Err(err).
				Str("event_id", ev.ID).
				Str("kind", string(ev.Kind)).
				Str("handler", fmt.Sprintf("%T", h)).
				Msg("notification handler failed")
			continue
		}
		r.Handled++
	}

	metrics.EventsDispatchedTotal.WithLabelValues(string(ev.Kind)).Inc()
	return r
}

func (b *Bus) invoke(ctx context.Context, h Handler, ev domain.NotificationEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h.HandleEvent(ctx, ev)
}
