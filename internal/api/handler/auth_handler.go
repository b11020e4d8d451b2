package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/middleware"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// AuthHandler starts, renews and ends browser sessions.
type AuthHandler struct {
	sessions *service.SessionService
	guard    *guard.Guard
	log      zerolog.Logger
}

func NewAuthHandler(sessions *service.SessionService, g *guard.Guard, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, guard: g, log: log.With().Str("component", "auth_handler").Logger()}
}

// Login authenticates against the backend and sets the session cookies.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := ctxBinding(c)
	if err != nil {
		return err
	}

	user, err := h.sessions.Login(c.Request().Context(), b, req.Email, req.Password)
	if err != nil {
		if domain.IsAuthError(err) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	h.log.Info().Str("user_id", user.ID).Str("scope_id", b.Scope.ID()).Msg("login")
	resp := h.view(c, b, user)
	resp.Next = h.landing(user, req.Next)
	return c.JSON(http.StatusOK, resp)
}

// Refresh renews the access token with the refresh cookie.
//
// @Summary      Refresh the session
// @Tags         session
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	b, err := ctxBinding(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Refresh(c.Request().Context(), b); err != nil {
		if domain.IsAuthError(err) || errors.Is(err, domain.ErrNotAuthenticated) {
			b.Clear(c.Request().Context())
			return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Logout revokes the session and clears the cookies. It always succeeds.
//
// @Summary      Logout
// @Tags         session
// @Success      204
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	b, err := ctxBinding(c)
	if err != nil {
		return err
	}
	h.sessions.Logout(c.Request().Context(), b)
	return c.NoContent(http.StatusNoContent)
}

// Session returns what the page shell needs on boot. Anonymous visitors get
// an unauthenticated view rather than an error.
//
// @Summary      Session bootstrap
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	b, err := ctxBinding(c)
	if err != nil {
		return err
	}

	var user *domain.User
	if b.Authenticated() {
		user, err = b.Scope.User(c.Request().Context())
		if err != nil {
			if !domain.IsAuthError(err) && !errors.Is(err, domain.ErrScopeClosed) {
				h.log.Warn().Err(err).Msg("session bootstrap could not load user")
			}
			user = nil
		}
		if !b.Authenticated() {
			user = nil
		}
	}
	return c.JSON(http.StatusOK, h.view(c, b, user))
}

func (h *AuthHandler) view(c echo.Context, b *service.Binding, user *domain.User) sessionResponse {
	resp := sessionResponse{
		Authenticated: user != nil,
		User:          user,
		Menu:          state.MenuFor(user),
		Locale:        middleware.LocaleFrom(c),
	}
	if user != nil {
		progress := user.Progress()
		resp.Registration = &progress
		resp.Toasts = b.Scope.Toasts.Len()
	}
	return resp
}

// landing picks where the browser goes after login: the current wizard step
// while registration is open, else next when the guard lets the user in.
func (h *AuthHandler) landing(user *domain.User, next string) string {
	if step, ok := user.Progress().Current(); ok {
		return step.Path()
	}
	dashboard := h.guard.Config().DashboardPath
	if !localPath(next) {
		return dashboard
	}
	d := h.guard.Evaluate(next, user)
	switch d.Action {
	case guard.Allow:
		return next
	case guard.Redirect:
		return d.Location
	}
	return dashboard
}
