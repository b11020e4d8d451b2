package service

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// ProductNotifications turns catalogue moderation and stock events into toasts.
type ProductNotifications struct {
	subscription
	toasts *state.ToastStore
}

func NewProductNotifications(bus *eventbus.Bus, toasts *state.ToastStore) *ProductNotifications {
	p := &ProductNotifications{toasts: toasts}
	p.subscription = subscription{
		bus:     bus,
		kinds:   []domain.EventKind{domain.KindProductApproved, domain.KindProductRejected, domain.KindProductLowStock},
		handler: p,
	}
	return p
}

func (p *ProductNotifications) HandleEvent(_ context.Context, ev domain.NotificationEvent) error {
	payload, ok := ev.Payload.(domain.ProductPayload)
	if !ok {
		return unexpectedPayload(ev)
	}

	name := html.EscapeString(payload.ProductName)
	t := state.Toast{Link: "/supplier/products/" + url.PathEscape(payload.ProductID)}
	switch ev.Kind {
	case domain.KindProductApproved:
		t.Level = state.ToastSuccess
		t.Title = "Product approved"
		t.Body = fmt.Sprintf("%s is now visible in the catalog.", name)
	case domain.KindProductRejected:
		t.Level = state.ToastError
		t.Title = "Product rejected"
		t.Body = fmt.Sprintf("%s was not approved.", name)
		if payload.Reason != "" {
			t.Body = fmt.Sprintf("%s was not approved: %s", name, html.EscapeString(payload.Reason))
		}
	case domain.KindProductLowStock:
		t.Level = state.ToastWarning
		t.Title = "Low stock"
		t.Body = fmt.Sprintf("%s has %d units left.", name, payload.Stock)
	default:
		return unexpectedPayload(ev)
	}

	p.toasts.Push(t)
	return nil
}
