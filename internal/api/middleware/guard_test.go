package middleware

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
	"github.com/marketlink/marketplace-web/internal/core/service"
)

func newGuard() *guard.Guard {
	return guard.New(guard.DefaultConfig("/dashboard"))
}

func TestGuard_AnonymousRedirectsToLogin(t *testing.T) {
	sessions := newSessions(t, &stubAPI{})

	rec, _, called := run(t, newRequest(t, "/orders/42", false), Session(sessions), Guard(newGuard(), zerolog.Nop()))

	if called {
		t.Fatalf("protected handler reached anonymously")
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login?next=%2Forders%2F42" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuard_CompleteUserLeavesLogin(t *testing.T) {
	sessions := newSessions(t, &stubAPI{user: &domain.User{ID: "u1", Role: domain.RoleBuyer, RegistrationComplete: true}})

	rec, _, _ := run(t, newRequest(t, "/login", true), Session(sessions), Guard(newGuard(), zerolog.Nop()))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuard_IncompleteUserSentToCurrentStep(t *testing.T) {
	sessions := newSessions(t, &stubAPI{user: &domain.User{
		ID: "u1", Role: domain.RoleSupplier, CompletedSteps: []string{"account-type", "company"},
	}})

	rec, _, _ := run(t, newRequest(t, "/register/review", true), Session(sessions), Guard(newGuard(), zerolog.Nop()))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/register/contact" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuard_AllowedNavigationCarriesUser(t *testing.T) {
	sessions := newSessions(t, &stubAPI{user: &domain.User{ID: "u1", Role: domain.RoleHybrid, RegistrationComplete: true}})

	rec, c, called := run(t, newRequest(t, "/supplier/products", true), Session(sessions), Guard(newGuard(), zerolog.Nop()))

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
	if u := UserFrom(c); u == nil || u.ID != "u1" {
		t.Fatalf("user not injected: %+v", u)
	}
}

func TestGuard_RejectedTokenFailsClosedAndClearsCookies(t *testing.T) {
	sessions := newSessions(t, &stubAPI{})

	rec, _, called := run(t, newRequest(t, "/orders", true), Session(sessions), Guard(newGuard(), zerolog.Nop()))

	if called {
		t.Fatalf("handler reached with a rejected token")
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login?next=%2Forders" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == service.AccessTokenCookie && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("access token cookie not cleared after 401")
	}
}

func TestGuard_ExemptPathsSkipLoading(t *testing.T) {
	api := &stubAPI{}
	sessions := newSessions(t, api)

	rec, _, called := run(t, newRequest(t, "/register/confirm-email?token=x", true), Session(sessions), Guard(newGuard(), zerolog.Nop()))

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("confirmation path must always pass, got %d", rec.Code)
	}
}
