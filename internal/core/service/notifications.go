package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// subscription binds one handler to a fixed set of kinds on a bus. Feature
// modules embed it to implement state.Registrar.
type subscription struct {
	bus     *eventbus.Bus
	kinds   []domain.EventKind
	handler eventbus.Handler
}

// Register subscribes the handler to every kind. It is idempotent.
func (s *subscription) Register() error {
	var errs []error
	for _, k := range s.kinds {
		if err := s.bus.Register(k, s.handler); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Unregister removes the handler from every kind. Safe when not registered.
func (s *subscription) Unregister() {
	for _, k := range s.kinds {
		s.bus.Unregister(k, s.handler)
	}
}

// IsRegistered reports whether the handler is subscribed to all its kinds.
func (s *subscription) IsRegistered() bool {
	for _, k := range s.kinds {
		if !s.bus.IsRegistered(k, s.handler) {
			return false
		}
	}
	return len(s.kinds) > 0
}

func unexpectedPayload(ev domain.NotificationEvent) error {
	return fmt.Errorf("%w: %s carries %T", domain.ErrInvalidEvent, ev.Kind, ev.Payload)
}

// scopeContext returns a context cancelled when scope closes or cancel is called.
func scopeContext(scope *state.Scope) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(state.ContextWithScope(context.Background(), scope))
	go func() {
		select {
		case <-scope.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
