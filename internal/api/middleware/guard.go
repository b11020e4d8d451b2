package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
)

// Guard evaluates every page navigation. The account is loaded on first use
// and the request waits for it; any failure counts as unauthenticated.
func Guard(g *guard.Guard, log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "guard").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if g.Exempt(req.URL.Path) {
				return next(c)
			}

			user := loadUser(c, log)

			uri := req.RequestURI
			if uri == "" {
				uri = req.URL.RequestURI()
			}
			d := g.Evaluate(uri, user)
			metrics.GuardDecisionsTotal.WithLabelValues(d.Reason).Inc()

			switch d.Action {
			case guard.Redirect:
				log.Debug().Str("path", req.URL.Path).Str("location", d.Location).Str("reason", d.Reason).Msg("navigation redirected")
				return c.Redirect(http.StatusFound, d.Location)
			case guard.Forbid:
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}

			if user != nil {
				c.Set(ctxUser, user)
			}
			return next(c)
		}
	}
}

func loadUser(c echo.Context, log zerolog.Logger) *domain.User {
	b := BindingFrom(c)
	if b == nil || !b.Authenticated() {
		return nil
	}
	user, err := b.Scope.User(c.Request().Context())
	if err != nil {
		if !domain.IsAuthError(err) && !errors.Is(err, domain.ErrScopeClosed) {
			log.Warn().Err(err).Msg("user load failed, treating as unauthenticated")
		}
		return nil
	}
	// A 401 elsewhere in the request or a reset during the load voids the session.
	if !b.Authenticated() {
		return nil
	}
	return user
}
