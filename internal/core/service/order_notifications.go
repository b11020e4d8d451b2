package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/eventbus"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// OrderNotifications reports order activity and asks the supplier to decide on
// cancellation requests. A confirmed request is approved at the backend.
type OrderNotifications struct {
	subscription
	scope *state.Scope
	api   ports.APIClient
	log   zerolog.Logger

	// pending tracks confirmation goroutines still waiting for a decision.
	pending sync.WaitGroup
}

func NewOrderNotifications(bus *eventbus.Bus, scope *state.Scope, api ports.APIClient, log zerolog.Logger) *OrderNotifications {
	o := &OrderNotifications{
		scope: scope,
		api:   api,
		log:   log.With().Str("component", "order_notifications").Logger(),
	}
	o.subscription = subscription{
		bus:     bus,
		kinds:   []domain.EventKind{domain.KindOrderCreated, domain.KindOrderStatusChanged, domain.KindOrderCancellationRequested},
		handler: o,
	}
	return o
}

func (o *OrderNotifications) HandleEvent(_ context.Context, ev domain.NotificationEvent) error {
	p, ok := ev.Payload.(domain.OrderPayload)
	if !ok {
		return unexpectedPayload(ev)
	}

	link := "/orders/" + url.PathEscape(p.OrderID)
	p = escapeOrderText(p)
	switch ev.Kind {
	case domain.KindOrderCreated:
		body := fmt.Sprintf("Order %s was placed.", p.OrderNumber)
		if p.BuyerName != "" {
			body = fmt.Sprintf("%s placed order %s.", p.BuyerName, p.OrderNumber)
		}
		o.scope.Toasts.Push(state.Toast{Level: state.ToastInfo, Title: "New order", Body: body, Link: link})
	case domain.KindOrderStatusChanged:
		o.scope.Toasts.Push(state.Toast{
			Level: state.ToastInfo,
			Title: "Order updated",
			Body:  fmt.Sprintf("Order %s is now %s.", p.OrderNumber, humanize(p.Status)),
			Link:  link,
		})
	case domain.KindOrderCancellationRequested:
		o.requestCancellationDecision(p)
	default:
		return unexpectedPayload(ev)
	}
	return nil
}

// escapeOrderText makes the free-text fields of p safe to embed in toast and
// confirmation markup.
func escapeOrderText(p domain.OrderPayload) domain.OrderPayload {
	p.OrderNumber = html.EscapeString(p.OrderNumber)
	p.BuyerName = html.EscapeString(p.BuyerName)
	p.Reason = html.EscapeString(p.Reason)
	return p
}

// Wait blocks until every outstanding confirmation has finished.
func (o *OrderNotifications) Wait() {
	o.pending.Wait()
}

// requestCancellationDecision opens the confirmation and returns at once; the
// decision is awaited on its own goroutine so dispatch is never blocked.
func (o *OrderNotifications) requestCancellationDecision(p domain.OrderPayload) {
	msg := fmt.Sprintf("The buyer asked to cancel order %s.", p.OrderNumber)
	if p.BuyerName != "" {
		msg = fmt.Sprintf("%s asked to cancel order %s.", p.BuyerName, p.OrderNumber)
	}
	if p.Reason != "" {
		msg += " Reason: " + p.Reason
	}

	confirmation := o.scope.Modals.Open(state.ConfirmRequest{
		Title:        "Cancellation requested",
		Message:      msg,
		ConfirmLabel: "Approve cancellation",
		CancelLabel:  "Keep order",
	})
	generation := o.scope.Generation()

	o.pending.Add(1)
	go func() {
		defer o.pending.Done()

		ctx, cancel := scopeContext(o.scope)
		defer cancel()

		decision, err := confirmation.Wait(ctx)
		if err != nil || decision != state.DecisionConfirm {
			return
		}
		if o.scope.Generation() != generation {
			return
		}
		o.approveCancellation(ctx, p)
	}()
}

func (o *OrderNotifications) approveCancellation(ctx context.Context, p domain.OrderPayload) {
	token := o.scope.Token()
	if token == "" {
		return
	}
	err := o.api.Do(ctx, ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/orders/" + url.PathEscape(p.OrderID) + "/cancellation/approve",
		Token:  token,
	}, nil)
	if err != nil {
		o.log.Warn().Err(err).Str("order_id", p.OrderID).Msg("cancellation approval failed")
		if domain.IsAuthError(err) {
			return
		}
		o.scope.Toasts.Push(state.Toast{
			Level: state.ToastError,
			Title: "Cancellation not approved",
			Body:  fmt.Sprintf("Order %s could not be cancelled. Try again from the order page.", p.OrderNumber),
			Link:  "/orders/" + url.PathEscape(p.OrderID),
		})
		return
	}
	o.scope.Toasts.Push(state.Toast{
		Level: state.ToastSuccess,
		Title: "Cancellation approved",
		Body:  fmt.Sprintf("Order %s was cancelled.", p.OrderNumber),
		Link:  "/orders/" + url.PathEscape(p.OrderID),
	})
}

func humanize(status string) string {
	if status == "" {
		return "updated"
	}
	return strings.ReplaceAll(status, "_", " ")
}
