package ports

import (
	"context"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// ScopedEvent is a notification received on the channel owned by one session scope.
type ScopedEvent struct {
	ScopeID string
	Event   domain.NotificationEvent
}

// EventService delivers inbound notifications to the owning scope.
type EventService interface {
	Process(ctx context.Context, event ScopedEvent) error
}

// EventDeduplicator suppresses redelivered events.
type EventDeduplicator interface {
	// FirstSeen atomically marks key and reports whether it was new.
	FirstSeen(ctx context.Context, key string) (bool, error)
}
