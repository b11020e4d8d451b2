package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

func sessionFixture(access, refresh string) domain.Session {
	return domain.Session{AccessToken: access, RefreshToken: refresh}
}

type sessionHarness struct {
	api      *stubAPI
	registry *state.Registry
	svc      *SessionService
}

func newSessionHarness(t *testing.T, respond func(req ports.APIRequest, out any) error) *sessionHarness {
	t.Helper()
	api := &stubAPI{respond: respond}
	jar := NewCookieJar("", false)
	loader := NewUserGateway(api, nil, zerolog.Nop())
	registry := state.NewRegistry(NewScopeFactory(ScopeDeps{Loader: loader, API: api, Log: zerolog.Nop()}), zerolog.Nop())
	svc := NewSessionService(jar, registry, NewAuthService(api, jar, zerolog.Nop()), zerolog.Nop())
	api.onUnauthorized = svc.HandleUnauthorized
	t.Cleanup(func() { registry.CloseAll(context.Background()) })
	return &sessionHarness{api: api, registry: registry, svc: svc}
}

func TestSessionService_BeginBindsPresentedToken(t *testing.T) {
	h := newSessionHarness(t, func(_ ports.APIRequest, out any) error {
		return fill(out, map[string]any{"id": "u1", "role": "supplier", "registration_complete": true})
	})
	token := signToken(t, "s", time.Now().Add(time.Hour))
	req := requestWithCookies(&http.Cookie{Name: AccessTokenCookie, Value: token})

	ctx, b, err := h.svc.Begin(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !b.Authenticated() || b.Scope.Token() != token {
		t.Fatalf("expected scope bound to presented token")
	}
	if got, ok := BindingFromContext(ctx); !ok || got != b {
		t.Fatalf("binding not stored in context")
	}
	if s, ok := state.ScopeFromContext(ctx); !ok || s != b.Scope {
		t.Fatalf("scope not stored in context")
	}
	if h.registry.Len() != 1 {
		t.Fatalf("expected one open scope, got %d", h.registry.Len())
	}
}

func TestSessionService_UnauthorizedClearsTokens(t *testing.T) {
	h := newSessionHarness(t, func(req ports.APIRequest, _ any) error {
		if req.Path == "/me" {
			return unauthorized()
		}
		return nil
	})
	token := signToken(t, "s", time.Now().Add(time.Hour))
	rec := httptest.NewRecorder()
	req := requestWithCookies(
		&http.Cookie{Name: AccessTokenCookie, Value: token},
		&http.Cookie{Name: RefreshTokenCookie, Value: "r"},
	)

	ctx, b, err := h.svc.Begin(rec, req)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	generation := b.Scope.Generation()

	if _, err := b.Scope.User(ctx); !domain.IsAuthError(err) {
		t.Fatalf("expected AUTH_ERROR, got %v", err)
	}

	if b.Authenticated() {
		t.Fatalf("binding still authenticated after 401")
	}
	if b.Scope.Token() != "" || b.Scope.Generation() == generation {
		t.Fatalf("scope not reset after 401")
	}
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		if c := cookieByName(rec, name); c == nil || c.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
}

func TestSessionService_BeginRefreshesExpiredToken(t *testing.T) {
	fresh := signToken(t, "s", time.Now().Add(time.Hour))
	h := newSessionHarness(t, func(req ports.APIRequest, out any) error {
		if req.Path == "/auth/refresh" {
			return fill(out, map[string]any{"access_token": fresh, "refresh_token": "r2"})
		}
		return nil
	})
	expired := signToken(t, "s", time.Now().Add(-time.Minute))
	rec := httptest.NewRecorder()
	req := requestWithCookies(
		&http.Cookie{Name: AccessTokenCookie, Value: expired},
		&http.Cookie{Name: RefreshTokenCookie, Value: "r1"},
	)

	_, b, err := h.svc.Begin(rec, req)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if b.Token() != fresh || b.Scope.Token() != fresh {
		t.Fatalf("expected refreshed token to be bound")
	}
	if c := cookieByName(rec, AccessTokenCookie); c == nil || c.Value != fresh {
		t.Fatalf("refreshed access cookie not written: %+v", c)
	}
	if c := cookieByName(rec, RefreshTokenCookie); c == nil || c.Value != "r2" {
		t.Fatalf("rotated refresh cookie not written: %+v", c)
	}
}

func TestSessionService_BeginWithRejectedRefreshIsUnauthenticated(t *testing.T) {
	h := newSessionHarness(t, func(req ports.APIRequest, _ any) error {
		if req.Path == "/auth/refresh" {
			return unauthorized()
		}
		return nil
	})
	rec := httptest.NewRecorder()
	req := requestWithCookies(&http.Cookie{Name: RefreshTokenCookie, Value: "revoked"})

	_, b, err := h.svc.Begin(rec, req)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if b.Authenticated() {
		t.Fatalf("expected unauthenticated binding")
	}
	if c := cookieByName(rec, RefreshTokenCookie); c == nil || c.MaxAge >= 0 {
		t.Fatalf("revoked refresh cookie not cleared: %+v", c)
	}
}

func TestSessionService_LoginAndLogout(t *testing.T) {
	access := signToken(t, "s", time.Now().Add(time.Hour))
	h := newSessionHarness(t, func(req ports.APIRequest, out any) error {
		switch req.Path {
		case "/auth/login":
			return fill(out, map[string]any{"access_token": access, "refresh_token": "r"})
		case "/me":
			return fill(out, map[string]any{"id": "u1", "role": "buyer", "registration_complete": true})
		}
		return nil
	})
	rec := httptest.NewRecorder()
	ctx, b, err := h.svc.Begin(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if b.Authenticated() {
		t.Fatalf("fresh visitor must be unauthenticated")
	}

	user, err := h.svc.Login(ctx, b, "ana@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "u1" || b.Scope.Token() != access {
		t.Fatalf("login did not bind the session: user=%+v token=%q", user, b.Scope.Token())
	}
	b.Scope.Toasts.Push(state.Toast{Title: "hello"})

	h.svc.Logout(ctx, b)

	if b.Authenticated() || b.Scope.Token() != "" {
		t.Fatalf("logout left the session authenticated")
	}
	if b.Scope.Users.Initialized() || b.Scope.Toasts.Len() != 0 {
		t.Fatalf("logout did not reset scope stores")
	}
	paths := h.api.paths()
	if paths[len(paths)-1] != "POST /auth/logout" {
		t.Fatalf("backend logout not called: %v", paths)
	}
}

func TestSessionService_HandleUnauthorizedInBackground(t *testing.T) {
	h := newSessionHarness(t, nil)
	scope, err := h.registry.Open("bg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	scope.BindToken(context.Background(), "tok")

	h.svc.HandleUnauthorized(state.ContextWithScope(context.Background(), scope))

	if scope.Token() != "" {
		t.Fatalf("background 401 must reset the scope")
	}
	h.svc.HandleUnauthorized(context.Background())
}
