package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v1/"}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestClient_SendsBearerQueryAndBody(t *testing.T) {
	var got struct {
		path, query, auth, contentType string
		body                           map[string]string
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "42"})
	})

	var out struct {
		ID string `json:"id"`
	}
	err := c.Do(context.Background(), ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/orders/42/cancellation/approve",
		Query:  url.Values{"reason": {"duplicate"}},
		Body:   map[string]string{"note": "ok"},
		Token:  "tok",
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
	assert.Equal(t, "/api/v1/orders/42/cancellation/approve", got.path)
	assert.Equal(t, "reason=duplicate", got.query)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, "ok", got.body["note"])
}

func TestClient_EscapedPathSegmentsSentOnce(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.RequestURI)
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a b", "x/y", "café"} {
		err := c.Do(context.Background(), ports.APIRequest{Path: "/orders/" + url.PathEscape(id)}, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"/api/v1/orders/a%20b",
		"/api/v1/orders/x%2Fy",
		"/api/v1/orders/caf%C3%A9",
	}, got)
}

func TestClient_NormalizesStatusIntoTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   domain.ErrorKind
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, domain.KindAuth, "token expired"},
		{"forbidden", http.StatusForbidden, `{"error":"not yours"}`, domain.KindForbidden, "not yours"},
		{"validation", http.StatusUnprocessableEntity, `{"message":"invalid"}`, domain.KindValidation, "invalid"},
		{"not found", http.StatusNotFound, ``, domain.KindAPI, "not found"},
		{"server error", http.StatusBadGateway, `<html>oops</html>`, domain.KindAPI, "bad gateway"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			err := c.Do(context.Background(), ports.APIRequest{Path: "/products"}, nil)

			var apiErr *domain.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.msg, apiErr.Message)
		})
	}
}

func TestClient_ValidationFieldErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid","errors":{"tax_id":["is required"],"company_name":"too short"},` +
			`"fields":[{"field":"email","message":"taken"}]}`))
	})

	err := c.Do(context.Background(), ports.APIRequest{Method: http.MethodPost, Path: "/registration/steps/company"}, nil)

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, domain.KindValidation, apiErr.Kind)
	assert.Equal(t, []domain.FieldError{
		{Field: "email", Message: "taken"},
		{Field: "company_name", Message: "too short"},
		{Field: "tax_id", Message: "is required"},
	}, apiErr.Fields)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)
	srv.Close()

	err = c.Do(context.Background(), ports.APIRequest{Path: "/me"}, nil)

	assert.Equal(t, domain.KindNetwork, domain.KindOf(err))
}

func TestClient_UnauthorizedRunsHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/me" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	type key struct{}
	var cleared []string
	c.SetUnauthorizedHandler(func(ctx context.Context) {
		cleared = append(cleared, ctx.Value(key{}).(string))
	})
	ctx := context.WithValue(context.Background(), key{}, "session-1")

	err := c.Do(ctx, ports.APIRequest{Path: "/me", Token: "stale"}, nil)
	require.True(t, domain.IsAuthError(err))
	assert.Equal(t, []string{"session-1"}, cleared)

	err = c.Do(ctx, ports.APIRequest{Path: "/orders", Token: "stale"}, nil)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	assert.Len(t, cleared, 1, "only 401 triggers the hook")
}

func TestClient_NoContentAndRawPassthrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"items":[1,2]}`))
	})

	var raw json.RawMessage
	require.NoError(t, c.Do(context.Background(), ports.APIRequest{Path: "/cart"}, &raw))
	assert.JSONEq(t, `{"items":[1,2]}`, string(raw))

	var ignored map[string]any
	require.NoError(t, c.Do(context.Background(), ports.APIRequest{Method: http.MethodDelete, Path: "/cart/items/1"}, &ignored))
	assert.Nil(t, ignored)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "/api"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://backend"}, zerolog.Nop())
	assert.Error(t, err)
}
