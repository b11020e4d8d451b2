package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

// ScopeDeliverer dispatches an event on the bus of one scope.
type ScopeDeliverer interface {
	Deliver(ctx context.Context, scopeID string, ev domain.NotificationEvent) (eventbus.Report, error)
}

type eventService struct {
	scopes ScopeDeliverer
	dedup  ports.EventDeduplicator
	log    zerolog.Logger
}

// NewEventService returns an EventService implementation.
func NewEventService(scopes ScopeDeliverer, dedup ports.EventDeduplicator, log zerolog.Logger) ports.EventService {
	return &eventService{
		scopes: scopes,
		dedup:  dedup,
		log:    log.With().Str("component", "event_service").Logger(),
	}
}

// Process deduplicates a single notification and dispatches it to its scope.
func (s *eventService) Process(ctx context.Context, in ports.ScopedEvent) error {
	// Redelivery after a reconnect is skipped; a dedup outage must not lose events.
	if in.Event.ID != "" && s.dedup != nil {
		first, err := s.dedup.FirstSeen(ctx, in.ScopeID+":"+in.Event.ID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("event_id", in.Event.ID).Msg("dedup check failed, processing anyway")
		case !first:
			metrics.EventsDedupTotal.WithLabelValues("hit").Inc()
			s.log.Debug().Str("event_id", in.Event.ID).Str("kind", string(in.Event.Kind)).Msg("duplicate event skipped")
			return nil
		default:
			metrics.EventsDedupTotal.WithLabelValues("miss").Inc()
		}
	}

	report, err := s.scopes.Deliver(ctx, in.ScopeID, in.Event)
	if errors.Is(err, domain.ErrScopeClosed) {
		metrics.EventsDroppedTotal.WithLabelValues("scope_closed").Inc()
		s.log.Debug().Str("scope_id", in.ScopeID).Str("event_id", in.Event.ID).Msg("event for closed scope dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("process event: %w", err)
	}

	s.log.Debug().
		Str("scope_id", in.ScopeID).
		Str("event_id", in.Event.ID).
		Str("kind", string(in.Event.Kind)).
		Int("handled", report.Handled).
		Int("failed", report.Failed).
		Msg("event processed")
	return nil
}
