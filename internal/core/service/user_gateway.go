package service

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

// UserGateway loads the current account from the backend's /me endpoint
// through a shared cache. Cache failures degrade to a backend round trip.
type UserGateway struct {
	api   ports.APIClient
	cache ports.UserCache
	log   zerolog.Logger
}

var _ ports.UserLoader = (*UserGateway)(nil)

func NewUserGateway(api ports.APIClient, cache ports.UserCache, log zerolog.Logger) *UserGateway {
	return &UserGateway{api: api, cache: cache, log: log.With().Str("component", "user_gateway").Logger()}
}

// LoadUser returns the account bound to token.
func (g *UserGateway) LoadUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	if g.cache != nil {
		user, err := g.cache.Get(ctx, token)
		if err != nil {
			g.log.Warn().Err(err).Msg("user cache read failed")
		} else if user != nil {
			return user, nil
		}
	}

	var user domain.User
	if err := g.api.Do(ctx, ports.APIRequest{Method: http.MethodGet, Path: "/me", Token: token}, &user); err != nil {
		return nil, err
	}
	if user.ID == "" || !user.Role.Valid() {
		return nil, &domain.APIError{Kind: domain.KindUnknown, Message: "backend returned an incomplete user"}
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, token, &user); err != nil {
			g.log.Warn().Err(err).Msg("user cache write failed")
		}
	}
	return &user, nil
}

// ForgetUser drops the cached account of token.
func (g *UserGateway) ForgetUser(ctx context.Context, token string) error {
	if g.cache == nil || token == "" {
		return nil
	}
	return g.cache.Delete(ctx, token)
}
