package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// RBAC enforces role-based access control. A hybrid account passes buyer and
// supplier checks.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !UserFrom(c).HasRole(allowedRoles...) {
				return c.JSON(http.StatusForbidden, map[string]string{"code": string(domain.KindForbidden), "error": "forbidden"})
			}
			return next(c)
		}
	}
}
