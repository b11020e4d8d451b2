package ports

import (
	"context"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// UserCache memoizes /me responses per access token.
type UserCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, token string) (*domain.User, error)
	Set(ctx context.Context, token string, user *domain.User) error
	Delete(ctx context.Context, token string) error
}

// UserLoader fetches the account bound to an access token.
type UserLoader interface {
	LoadUser(ctx context.Context, token string) (*domain.User, error)
	// ForgetUser drops anything memoized for token so the next load hits the backend.
	ForgetUser(ctx context.Context, token string) error
}
