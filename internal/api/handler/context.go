package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/api/middleware"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/service"
)

// ctxSession extracts the binding and account injected by the Session and
// RequireSession middleware and fails fast before any service call.
func ctxSession(c echo.Context) (*service.Binding, *domain.User, error) {
	b := middleware.BindingFrom(c)
	user := middleware.UserFrom(c)
	if b == nil || user == nil || !b.Authenticated() {
		return nil, nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return b, user, nil
}

// ctxBinding returns the binding alone, for routes open to anonymous visitors.
func ctxBinding(c echo.Context) (*service.Binding, error) {
	b := middleware.BindingFrom(c)
	if b == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}
	return b, nil
}

// localPath accepts only same-origin absolute paths, so a "next" parameter
// cannot send the browser to another host. Browsers drop tabs and newlines
// from URLs and read "\" as "/", so any control byte or backslash is refused.
func localPath(p string) bool {
	if p == "" || p[0] != '/' || strings.HasPrefix(p, "//") {
		return false
	}
	for i := 0; i < len(p); i++ {
		if b := p[i]; b < 0x20 || b == 0x7f || b == '\\' {
			return false
		}
	}
	return true
}
