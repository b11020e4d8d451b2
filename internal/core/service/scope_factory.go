package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// ScopeDeps are the shared collaborators every new scope is wired with.
type ScopeDeps struct {
	Loader ports.UserLoader
	API    ports.APIClient
	// Channels builds the real-time channel of one scope; frames are handed to
	// the listener it receives.
	Channels func(listener func(domain.NotificationEvent)) ports.ChannelManager
	// Enqueue forwards an inbound event to the dispatcher. It must not block.
	Enqueue func(ports.ScopedEvent) bool
	Log     zerolog.Logger
}

// NewScopeFactory returns a state.Factory building a scope with its own bus,
// channel and the product, system and order notification modules attached.
func NewScopeFactory(deps ScopeDeps) state.Factory {
	return func(id string) (*state.Scope, error) {
		log := deps.Log.With().Str("scope_id", id).Logger()
		bus := eventbus.New(log)

		var channel ports.ChannelManager
		if deps.Channels != nil && deps.Enqueue != nil {
			channel = deps.Channels(func(ev domain.NotificationEvent) {
				deps.Enqueue(ports.ScopedEvent{ScopeID: id, Event: ev})
			})
		}

		scope := state.NewScope(id, state.Options{
			Bus:     bus,
			Channel: channel,
			Loader:  deps.Loader,
			Log:     deps.Log,
		})
		err := scope.Attach(
			NewProductNotifications(bus, scope.Toasts),
			NewSystemNotifications(bus, scope, log),
			NewOrderNotifications(bus, scope, deps.API, log),
		)
		if err != nil {
			return nil, fmt.Errorf("wire scope: %w", err)
		}
		return scope, nil
	}
}
