package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/api/middleware"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// LocaleHandler reads and changes the display language.
type LocaleHandler struct {
	locales *state.Locales
	jar     *service.CookieJar
}

func NewLocaleHandler(locales *state.Locales, jar *service.CookieJar) *LocaleHandler {
	return &LocaleHandler{locales: locales, jar: jar}
}

// Get handles GET /api/locale.
//
// @Summary      Current locale
// @Tags         locale
// @Produce      json
// @Success      200  {object}  localeResponse
// @Router       /api/locale [get]
func (h *LocaleHandler) Get(c echo.Context) error {
	locale := middleware.LocaleFrom(c)
	if locale == "" {
		locale = h.locales.Default()
	}
	return c.JSON(http.StatusOK, localeResponse{Locale: locale, Supported: h.locales.Supported()})
}

// Set handles PUT /api/locale. The choice is stored in a cookie and wins
// over Accept-Language on later requests.
//
// @Summary      Change locale
// @Tags         locale
// @Accept       json
// @Produce      json
// @Param        body  body      localeRequest  true  "Locale"
// @Success      200   {object}  localeResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/locale [put]
func (h *LocaleHandler) Set(c echo.Context) error {
	var req localeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !h.locales.IsSupported(req.Locale) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "unsupported locale")
	}

	h.jar.SetLocale(c.Response(), c.Request(), req.Locale)
	c.Response().Header().Set("Content-Language", req.Locale)
	return c.JSON(http.StatusOK, localeResponse{Locale: req.Locale, Supported: h.locales.Supported()})
}
