package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/service"
)

const (
	ctxBinding = "session_binding"
	ctxUser    = "user"
	ctxLocale  = "locale"
)

// BindingFrom returns the session binding set by Session.
func BindingFrom(c echo.Context) *service.Binding {
	b, _ := c.Get(ctxBinding).(*service.Binding)
	return b
}

// UserFrom returns the account resolved by Guard or RequireSession, or nil.
func UserFrom(c echo.Context) *domain.User {
	u, _ := c.Get(ctxUser).(*domain.User)
	return u
}

// LocaleFrom returns the locale resolved by Locale.
func LocaleFrom(c echo.Context) string {
	l, _ := c.Get(ctxLocale).(string)
	return l
}
