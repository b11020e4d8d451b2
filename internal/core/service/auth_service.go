package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

// TokenInspector reads the expiry of an access token.
type TokenInspector interface {
	TokenExpiry(token string) (time.Time, error)
}

// AuthService exchanges credentials with the backend. Passwords never touch
// this process beyond the login request.
type AuthService struct {
	api    ports.APIClient
	tokens TokenInspector
	log    zerolog.Logger
}

func NewAuthService(api ports.APIClient, tokens TokenInspector, log zerolog.Logger) *AuthService {
	return &AuthService{api: api, tokens: tokens, log: log.With().Str("component", "auth_service").Logger()}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user,omitempty"`
}

// Login authenticates email/password and returns the issued session. The
// backend may embed the user in the response; it is returned when present.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Session, *domain.User, error) {
	var resp tokenResponse
	err := s.api.Do(ctx, ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": email, "password": password},
	}, &resp)
	if err != nil {
		return domain.Session{}, nil, err
	}

	session, err := s.session(resp, "")
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("login: %w", err)
	}
	return session, resp.User, nil
}

// Refresh trades a refresh token for a new session. Backends that do not
// rotate refresh tokens keep the old one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	if refreshToken == "" {
		return domain.Session{}, domain.ErrNotAuthenticated
	}

	var resp tokenResponse
	err := s.api.Do(ctx, ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   map[string]string{"refresh_token": refreshToken},
	}, &resp)
	if err != nil {
		return domain.Session{}, err
	}
	return s.session(resp, refreshToken)
}

// Logout revokes the session at the backend. Failures are logged only: the
// local session is discarded regardless.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) {
	if session.IsZero() {
		return
	}
	err := s.api.Do(ctx, ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Token:  session.AccessToken,
		Body:   map[string]string{"refresh_token": session.RefreshToken},
	}, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("backend logout failed")
	}
}

func (s *AuthService) session(resp tokenResponse, fallbackRefresh string) (domain.Session, error) {
	if resp.AccessToken == "" {
		return domain.Session{}, &domain.APIError{Kind: domain.KindUnknown, Message: "backend returned no access token"}
	}
	expiry, err := s.tokens.TokenExpiry(resp.AccessToken)
	if err != nil {
		return domain.Session{}, &domain.APIError{Kind: domain.KindUnknown, Message: "backend returned an unreadable token", Cause: err}
	}
	refresh := resp.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return domain.Session{AccessToken: resp.AccessToken, RefreshToken: refresh, Expiry: expiry}, nil
}
