package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

func TestProxyHandler_Products_NormalizesTableQuery(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	env.api.on(http.MethodGet, "/products", func(ports.APIRequest) (any, error) {
		return map[string]any{"items": []string{"p1"}, "total": 1}, nil
	})
	h := NewProxyHandler(env.api)

	target := "/api/catalog/products?page=2&limit=500&sort=-price&category=tools&internal=1"
	rec, err := env.serve(newRequest(t, http.MethodGet, target, "", true), h.Products, true)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	call, _ := env.api.lastCall("/products")
	q := call.Query
	if q.Get("page") != "2" || q.Get("limit") != "100" || q.Get("sort") != "-price" || q.Get("category") != "tools" {
		t.Fatalf("unexpected query: %v", q)
	}
	if q.Has("internal") {
		t.Fatalf("unknown parameters must not be forwarded: %v", q)
	}
	if call.Token == "" {
		t.Fatalf("expected bearer token")
	}

	var body map[string]any
	decode(t, rec, &body)
	if body["total"] != float64(1) {
		t.Fatalf("expected backend body to be relayed, got %v", body)
	}
}

func TestProxyHandler_Search_RecordsHistory(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	env.api.on(http.MethodGet, "/catalog/search", func(ports.APIRequest) (any, error) {
		return map[string]any{"items": []string{}}, nil
	})
	h := NewProxyHandler(env.api)

	for _, q := range []string{"bolts", "nuts", "BOLTS"} {
		if _, err := env.serve(newRequest(t, http.MethodGet, "/api/catalog/search?q="+q, "", true), h.Search, true); err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
	}

	got := env.scope(t).Search.Recent()
	if len(got) != 2 || got[0] != "BOLTS" || got[1] != "nuts" {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestProxyHandler_Search_RequiresQuery(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	h := NewProxyHandler(env.api)

	_, err := env.serve(newRequest(t, http.MethodGet, "/api/catalog/search?q=%20", "", true), h.Search, true)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestProxyHandler_Follow_NoContent(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	h := NewProxyHandler(env.api)

	rec, err := env.serve(newRequest(t, http.MethodPost, "/api/connections/c%2F1/follow", "", true), h.Follow, true, "id", "c/1")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := env.api.lastCall("/connections/c%2F1/follow"); !ok {
		t.Fatalf("expected escaped connection id in backend path")
	}
}

func TestProxyHandler_Order_PropagatesBackendError(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	env.api.on(http.MethodGet, "/orders/42", func(ports.APIRequest) (any, error) {
		return nil, &domain.APIError{Kind: domain.KindAPI, Status: http.StatusNotFound, Message: "order not found"}
	})
	h := NewProxyHandler(env.api)

	_, err := env.serve(newRequest(t, http.MethodGet, "/api/orders/42", "", true), h.Order, true, "id", "42")
	if domain.KindOf(err) != domain.KindAPI {
		t.Fatalf("expected API_ERROR, got %v", err)
	}
}

func TestProxyHandler_Purchases_ScopesToBuyer(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleHybrid))
	h := NewProxyHandler(env.api)

	if _, err := env.serve(newRequest(t, http.MethodGet, "/api/buyer/orders", "", true), h.Purchases, true); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	call, _ := env.api.lastCall("/orders")
	if call.Query.Get("role") != "buyer" || call.Query.Get("page") != "1" {
		t.Fatalf("unexpected query: %v", call.Query)
	}
}

func TestProxyHandler_AddCartItem_Validation(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	h := NewProxyHandler(env.api)

	_, err := env.serve(newRequest(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1","quantity":0}`, true), h.AddCartItem, true)

	var ae *domain.APIError
	if !errors.As(err, &ae) || len(ae.Fields) != 1 || ae.Fields[0].Field != "quantity" {
		t.Fatalf("expected quantity field error, got %v", err)
	}
}

func TestProxyHandler_RequiresSession(t *testing.T) {
	env := newEnv(t, completeUser(domain.RoleBuyer))
	h := NewProxyHandler(env.api)

	_, err := env.serve(newRequest(t, http.MethodGet, "/api/cart", "", false), h.Cart, true)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if _, called := env.api.lastCall("/cart"); called {
		t.Fatalf("backend must not be called without a session")
	}
}
