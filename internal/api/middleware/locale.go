package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// Locale resolves the request locale from the locale cookie and the
// Accept-Language header and reflects it in Content-Language.
func Locale(locales *state.Locales, jar *service.CookieJar) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			locale := locales.Resolve(jar.Locale(req), req.Header.Get("Accept-Language"))
			c.Set(ctxLocale, locale)
			c.Response().Header().Set("Content-Language", locale)
			return next(c)
		}
	}
}
