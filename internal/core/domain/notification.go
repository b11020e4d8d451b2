package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names a server-pushed notification. The set is closed: frames with
// any other kind are rejected by DecodeEvent.
type EventKind string

const (
	KindProductApproved EventKind = "product.approved"
	KindProductRejected EventKind = "product.rejected"
	KindProductLowStock EventKind = "product.low_stock"

	KindSystemAnnouncement EventKind = "system.announcement"
	KindAccountVerified    EventKind = "system.account_verified"
	KindRoleChanged        EventKind = "system.role_changed"

	KindOrderCreated               EventKind = "order.created"
	KindOrderStatusChanged         EventKind = "order.status_changed"
	KindOrderCancellationRequested EventKind = "order.cancellation_requested"
)

// EventKinds lists every known kind.
var EventKinds = []EventKind{
	KindProductApproved,
	KindProductRejected,
	KindProductLowStock,
	KindSystemAnnouncement,
	KindAccountVerified,
	KindRoleChanged,
	KindOrderCreated,
	KindOrderStatusChanged,
	KindOrderCancellationRequested,
}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	_, ok := payloadFactories[k]
	return ok
}

// Payload is implemented by every typed notification payload.
type Payload interface {
	EventKind() EventKind
}

// ProductPayload is carried by product.* events.
type ProductPayload struct {
	Kind        EventKind `json:"-"`
	ProductID   string    `json:"product_id" validate:"required"`
	ProductName string    `json:"product_name" validate:"required"`
	Reason      string    `json:"reason,omitempty"`
	Stock       int       `json:"stock,omitempty" validate:"gte=0"`
}

func (p ProductPayload) EventKind() EventKind { return p.Kind }

// AnnouncementPayload is carried by system.announcement.
type AnnouncementPayload struct {
	Title   string `json:"title" validate:"required"`
	Body    string `json:"body"`
	Level   string `json:"level" validate:"omitempty,oneof=info success warning error"`
	LinkURL string `json:"link_url,omitempty"`
}

func (AnnouncementPayload) EventKind() EventKind { return KindSystemAnnouncement }

// AccountPayload is carried by system.account_verified and system.role_changed.
type AccountPayload struct {
	Kind    EventKind `json:"-"`
	UserID  string    `json:"user_id" validate:"required"`
	NewRole Role      `json:"new_role,omitempty"`
}

func (p AccountPayload) EventKind() EventKind { return p.Kind }

// OrderPayload is carried by order.* events.
type OrderPayload struct {
	Kind        EventKind `json:"-"`
	OrderID     string    `json:"order_id" validate:"required"`
	OrderNumber string    `json:"order_number" validate:"required"`
	Status      string    `json:"status,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	BuyerName   string    `json:"buyer_name,omitempty"`
}

func (p OrderPayload) EventKind() EventKind { return p.Kind }

// payloadFactories decodes the raw payload for each kind.
var payloadFactories = map[EventKind]func(json.RawMessage) (Payload, error){
	KindProductApproved: productDecoder(KindProductApproved),
	KindProductRejected: productDecoder(KindProductRejected),
	KindProductLowStock: productDecoder(KindProductLowStock),
	KindSystemAnnouncement: func(raw json.RawMessage) (Payload, error) {
		var p AnnouncementPayload
		err := json.Unmarshal(raw, &p)
		return p, err
	},
	KindAccountVerified:            accountDecoder(KindAccountVerified),
	KindRoleChanged:                accountDecoder(KindRoleChanged),
	KindOrderCreated:               orderDecoder(KindOrderCreated),
	KindOrderStatusChanged:         orderDecoder(KindOrderStatusChanged),
	KindOrderCancellationRequested: orderDecoder(KindOrderCancellationRequested),
}

func productDecoder(kind EventKind) func(json.RawMessage) (Payload, error) {
	return func(raw json.RawMessage) (Payload, error) {
		p := ProductPayload{}
		err := json.Unmarshal(raw, &p)
		p.Kind = kind
		return p, err
	}
}

func accountDecoder(kind EventKind) func(json.RawMessage) (Payload, error) {
	return func(raw json.RawMessage) (Payload, error) {
		p := AccountPayload{}
		err := json.Unmarshal(raw, &p)
		p.Kind = kind
		return p, err
	}
}

func orderDecoder(kind EventKind) func(json.RawMessage) (Payload, error) {
	return func(raw json.RawMessage) (Payload, error) {
		p := OrderPayload{}
		err := json.Unmarshal(raw, &p)
		p.Kind = kind
		return p, err
	}
}

// NotificationEvent is one decoded server push. It only lives for the duration
// of a dispatch; notification history is kept by the backend.
type NotificationEvent struct {
	ID        string
	Kind      EventKind
	Payload   Payload
	CreatedAt time.Time
}

type wireEvent struct {
	ID        string          `json:"id"`
	Type      EventKind       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// DecodeEvent parses a wire frame into a typed event. Unknown kinds fail with
// ErrUnknownEventKind and malformed payloads with ErrInvalidEvent.
func DecodeEvent(frame []byte) (NotificationEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(frame, &w); err != nil {
		return NotificationEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	decode, ok := payloadFactories[w.Type]
	if !ok {
		return NotificationEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, w.Type)
	}
	if len(w.Payload) == 0 {
		return NotificationEvent{}, fmt.Errorf("%w: %s has no payload", ErrInvalidEvent, w.Type)
	}

	payload, err := decode(w.Payload)
	if err != nil {
		return NotificationEvent{}, fmt.Errorf("%w: %s payload: %v", ErrInvalidEvent, w.Type, err)
	}

	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return NotificationEvent{
		ID:        w.ID,
		Kind:      w.Type,
		Payload:   payload,
		CreatedAt: createdAt,
	}, nil
}
