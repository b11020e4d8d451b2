package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	LocaleCookie       = "locale"
	SessionIDCookie    = "session_id"

	accessTokenMaxAge  = 24 * time.Hour
	refreshTokenMaxAge = 30 * 24 * time.Hour
	localeMaxAge       = 365 * 24 * time.Hour
	sessionIDMaxAge    = 30 * 24 * time.Hour
)

// CookieJar reads and writes the session credentials carried in cookies.
type CookieJar struct {
	secret      []byte
	forceSecure bool
}

// NewCookieJar returns a jar. When jwtSecret is set access tokens must carry a
// valid HS256 signature; otherwise only their exp claim is read.
func NewCookieJar(jwtSecret string, forceSecure bool) *CookieJar {
	j := &CookieJar{forceSecure: forceSecure}
	if jwtSecret != "" {
		j.secret = []byte(jwtSecret)
	}
	return j
}

// Read returns the credentials presented by r. An access token that fails
// verification is dropped, so the session reports unauthenticated while the
// refresh token stays usable.
func (j *CookieJar) Read(r *http.Request) domain.Session {
	var s domain.Session
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		s.RefreshToken = c.Value
	}
	c, err := r.Cookie(AccessTokenCookie)
	if err != nil || c.Value == "" {
		return s
	}
	expiry, err := j.TokenExpiry(c.Value)
	if err != nil {
		return s
	}
	s.AccessToken = c.Value
	s.Expiry = expiry
	return s
}

// Write stores s on the response.
func (j *CookieJar) Write(w http.ResponseWriter, r *http.Request, s domain.Session) {
	http.SetCookie(w, j.cookie(r, AccessTokenCookie, s.AccessToken, accessTokenMaxAge))
	if s.RefreshToken != "" {
		http.SetCookie(w, j.cookie(r, RefreshTokenCookie, s.RefreshToken, refreshTokenMaxAge))
	}
}

// Clear expires both credential cookies.
func (j *CookieJar) Clear(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := j.cookie(r, name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// SessionID returns the browser session identifier, minting and storing a new
// one when the request carries none.
func (j *CookieJar) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(SessionIDCookie); err == nil && validSessionID(c.Value) {
		return c.Value, nil
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	id := base64.RawURLEncoding.EncodeToString(buf)
	http.SetCookie(w, j.cookie(r, SessionIDCookie, id, sessionIDMaxAge))
	return id, nil
}

// Locale returns the locale cookie value, or "" when absent.
func (j *CookieJar) Locale(r *http.Request) string {
	if c, err := r.Cookie(LocaleCookie); err == nil {
		return c.Value
	}
	return ""
}

// SetLocale persists the chosen locale for a year. The locale is read by the
// page shell, so the cookie is not HttpOnly.
func (j *CookieJar) SetLocale(w http.ResponseWriter, r *http.Request, locale string) {
	c := j.cookie(r, LocaleCookie, locale, localeMaxAge)
	c.HttpOnly = false
	http.SetCookie(w, c)
}

// TokenExpiry returns the exp claim of an access token. A token without exp
// yields the zero time.
func (j *CookieJar) TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if j.secret == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return time.Time{}, fmt.Errorf("parse token: %w", err)
		}
	} else {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		)
		if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return j.secret, nil
		}); err != nil {
			return time.Time{}, fmt.Errorf("verify token: %w", err)
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("token exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

func (j *CookieJar) cookie(r *http.Request, name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   j.secure(r),
		SameSite: http.SameSiteLaxMode,
	}
}

func (j *CookieJar) secure(r *http.Request) bool {
	if j.forceSecure || r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func validSessionID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}
