package realtime

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// Decoder turns wire frames into typed events, rejecting unknown kinds and
// payloads that fail their schema.
type Decoder struct {
	v *validator.Validate
}

// NewDecoder returns a Decoder with its own validator instance.
func NewDecoder() *Decoder {
	return &Decoder{v: validator.New()}
}

// Decode parses and validates one frame.
func (d *Decoder) Decode(frame []byte) (domain.NotificationEvent, error) {
	ev, err := domain.DecodeEvent(frame)
	if err != nil {
		result := "invalid"
		if errors.Is(err, domain.ErrUnknownEventKind) {
			result = "unknown_kind"
		}
		metrics.EventsReceivedTotal.WithLabelValues(result).Inc()
		return domain.NotificationEvent{}, err
	}

	if err := d.v.Struct(ev.Payload); err != nil {
		metrics.EventsReceivedTotal.WithLabelValues("invalid").Inc()
		return domain.NotificationEvent{}, fmt.Errorf("%w: %s payload: %v", domain.ErrInvalidEvent, ev.Kind, err)
	}

	metrics.EventsReceivedTotal.WithLabelValues("decoded").Inc()
	return ev, nil
}
