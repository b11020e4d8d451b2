package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/service"
)

// Session resolves the browser session of every request and stores the
// binding in both the echo context and the request context.
func Session(sessions *service.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, b, err := sessions.Begin(c.Response(), c.Request())
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(ctxBinding, b)
			return next(c)
		}
	}
}
