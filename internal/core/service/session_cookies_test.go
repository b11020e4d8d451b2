package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requestWithCookies(cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestCookieJar_WriteSetsAttributes(t *testing.T) {
	jar := NewCookieJar("", false)
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()

	jar.Write(rec, req, sessionFixture("access", "refresh"))

	access := cookieByName(rec, AccessTokenCookie)
	if access == nil || access.Value != "access" {
		t.Fatalf("access cookie missing: %+v", access)
	}
	if access.MaxAge != 86400 || access.Path != "/" || !access.HttpOnly || !access.Secure || access.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected access cookie attributes: %+v", access)
	}
	refresh := cookieByName(rec, RefreshTokenCookie)
	if refresh == nil || refresh.MaxAge != 30*86400 {
		t.Fatalf("unexpected refresh cookie: %+v", refresh)
	}
}

func TestCookieJar_SecureOnlyOverTLS(t *testing.T) {
	jar := NewCookieJar("", false)
	rec := httptest.NewRecorder()
	jar.Write(rec, httptest.NewRequest(http.MethodPost, "/login", nil), sessionFixture("a", ""))

	if c := cookieByName(rec, AccessTokenCookie); c == nil || c.Secure {
		t.Fatalf("plain HTTP must not set Secure: %+v", c)
	}
	if c := cookieByName(rec, RefreshTokenCookie); c != nil {
		t.Fatalf("empty refresh token must not be written")
	}

	forced := NewCookieJar("", true)
	rec = httptest.NewRecorder()
	forced.Write(rec, httptest.NewRequest(http.MethodPost, "/login", nil), sessionFixture("a", ""))
	if c := cookieByName(rec, AccessTokenCookie); c == nil || !c.Secure {
		t.Fatalf("forced secure cookie expected: %+v", c)
	}
}

func TestCookieJar_ReadParsesExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, "secret", exp)
	jar := NewCookieJar("", false)

	s := jar.Read(requestWithCookies(
		&http.Cookie{Name: AccessTokenCookie, Value: token},
		&http.Cookie{Name: RefreshTokenCookie, Value: "r"},
	))

	if s.AccessToken != token || s.RefreshToken != "r" || !s.Expiry.Equal(exp) {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestCookieJar_ReadDropsBadSignature(t *testing.T) {
	token := signToken(t, "other-secret", time.Now().Add(time.Hour))
	jar := NewCookieJar("secret", false)

	s := jar.Read(requestWithCookies(
		&http.Cookie{Name: AccessTokenCookie, Value: token},
		&http.Cookie{Name: RefreshTokenCookie, Value: "r"},
	))

	if !s.IsZero() {
		t.Fatalf("forged access token accepted")
	}
	if s.RefreshToken != "r" {
		t.Fatalf("refresh token should survive, got %q", s.RefreshToken)
	}
}

func TestCookieJar_ReadKeepsExpiredTokenForCaller(t *testing.T) {
	token := signToken(t, "secret", time.Now().Add(-time.Minute))
	jar := NewCookieJar("secret", false)

	s := jar.Read(requestWithCookies(&http.Cookie{Name: AccessTokenCookie, Value: token}))

	if s.IsZero() || !s.Expired(time.Now()) {
		t.Fatalf("expected an expired session, got %+v", s)
	}
}

func TestCookieJar_ClearExpiresCookies(t *testing.T) {
	jar := NewCookieJar("", false)
	rec := httptest.NewRecorder()

	jar.Clear(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
}

func TestCookieJar_SessionIDMintedOnceAndReused(t *testing.T) {
	jar := NewCookieJar("", false)
	rec := httptest.NewRecorder()

	id, err := jar.SessionID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || id == "" {
		t.Fatalf("SessionID: %q, %v", id, err)
	}
	minted := cookieByName(rec, SessionIDCookie)
	if minted == nil || minted.Value != id {
		t.Fatalf("session cookie not written: %+v", minted)
	}

	rec = httptest.NewRecorder()
	again, err := jar.SessionID(rec, requestWithCookies(minted))
	if err != nil || again != id {
		t.Fatalf("expected reuse of %q, got %q (%v)", id, again, err)
	}
	if cookieByName(rec, SessionIDCookie) != nil {
		t.Fatalf("existing session id must not be rewritten")
	}

	rec = httptest.NewRecorder()
	fresh, _ := jar.SessionID(rec, requestWithCookies(&http.Cookie{Name: SessionIDCookie, Value: "short"}))
	if fresh == "short" {
		t.Fatalf("malformed session id accepted")
	}
}

func TestCookieJar_Locale(t *testing.T) {
	jar := NewCookieJar("", false)
	rec := httptest.NewRecorder()

	jar.SetLocale(rec, httptest.NewRequest(http.MethodPost, "/api/locale", nil), "es")

	c := cookieByName(rec, LocaleCookie)
	if c == nil || c.Value != "es" || c.HttpOnly || c.MaxAge != 365*86400 {
		t.Fatalf("unexpected locale cookie: %+v", c)
	}
	if got := jar.Locale(requestWithCookies(c)); got != "es" {
		t.Fatalf("Locale = %q, want es", got)
	}
}
