package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// RequireSession rejects API calls without an authenticated session and
// injects the account into the context. Page navigations use Guard instead.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := BindingFrom(c)
			if b == nil || !b.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			user, err := b.Scope.User(c.Request().Context())
			if err != nil {
				if domain.IsAuthError(err) || errors.Is(err, domain.ErrScopeClosed) || errors.Is(err, domain.ErrNotAuthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
				}
				return err
			}
			if !b.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			c.Set(ctxUser, user)
			return next(c)
		}
	}
}
