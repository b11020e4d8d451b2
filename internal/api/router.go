package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/marketlink/marketplace-web/docs"
	"github.com/marketlink/marketplace-web/internal/api/handler"
	"github.com/marketlink/marketplace-web/internal/api/middleware"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/guard"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Log          zerolog.Logger
	API          ports.APIClient
	Jar          *service.CookieJar
	Sessions     *service.SessionService
	Registration *service.RegistrationService
	Locales      *state.Locales
	Guard        *guard.Guard
	// Checks are the readiness probes, keyed by dependency name.
	Checks map[string]handler.Check
	// Registerer receives the HTTP metrics; nil uses the default registry.
	Registerer prometheus.Registerer
	Title      string
	Swagger    bool
	// StaticDir serves the client bundle under /static when set.
	StaticDir string
}

// @title        Marketplace web API
// @version      1.0
// @description  Backend-for-frontend of the B2B marketplace: sessions, registration wizard, UI state and backend proxy.
// @BasePath     /

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.Validator = handler.NewValidator()

	renderer, err := handler.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "marketplace_web",
		Subsystem:  "http",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/metrics" || p == "/healthz" || p == "/readyz"
		},
	}))

	// --- Operational endpoints (no session) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks)
	e.GET("/healthz", healthHandler.Liveness)     // liveness  – is the process alive?
	e.GET("/readyz", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler(d.Registerer))
	if d.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
	if d.StaticDir != "" {
		e.Static("/static", d.StaticDir)
	} else {
		e.GET("/static/*", func(c echo.Context) error { return echo.ErrNotFound })
	}

	session := middleware.Session(d.Sessions)
	locale := middleware.Locale(d.Locales, d.Jar)

	authHandler := handler.NewAuthHandler(d.Sessions, d.Guard, d.Log)
	registrationHandler := handler.NewRegistrationHandler(d.Registration, d.Guard, d.Log)
	proxyHandler := handler.NewProxyHandler(d.API)
	uiHandler := handler.NewUIHandler(d.API)
	localeHandler := handler.NewLocaleHandler(d.Locales, d.Jar)
	pageHandler := handler.NewPageHandler(d.Title)

	// --- JSON API ---
	api := e.Group("/api", session, locale)
	api.GET("/session", authHandler.Session)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/locale", localeHandler.Get)
	api.PUT("/locale", localeHandler.Set)

	authed := api.Group("", middleware.RequireSession())

	authed.GET("/registration", registrationHandler.Progress)
	authed.POST("/registration/steps/:step", registrationHandler.Submit)
	authed.GET("/registration/steps/:step/draft", registrationHandler.Draft)
	authed.PUT("/registration/steps/:step/draft", registrationHandler.SaveDraft)

	authed.GET("/catalog/products", proxyHandler.Products)
	authed.GET("/catalog/products/:id", proxyHandler.Product)
	authed.GET("/catalog/search", proxyHandler.Search)
	authed.GET("/search/history", uiHandler.SearchHistory)
	authed.DELETE("/search/history", uiHandler.ClearSearchHistory)

	buyer := authed.Group("", middleware.RBAC(domain.RoleBuyer))
	buyer.GET("/cart", proxyHandler.Cart)
	buyer.POST("/cart/items", proxyHandler.AddCartItem)
	buyer.PATCH("/cart/items/:id", proxyHandler.UpdateCartItem)
	buyer.DELETE("/cart/items/:id", proxyHandler.RemoveCartItem)
	buyer.GET("/buyer/orders", proxyHandler.Purchases)

	supplier := authed.Group("", middleware.RBAC(domain.RoleSupplier))
	supplier.GET("/supplier/orders", proxyHandler.Sales)
	supplier.POST("/supplier/orders/:id/cancellation/approve", proxyHandler.ApproveCancellation)

	authed.GET("/orders/:id", proxyHandler.Order)

	authed.GET("/connections", proxyHandler.Connections)
	authed.POST("/connections/:id/follow", proxyHandler.Follow)
	authed.DELETE("/connections/:id/follow", proxyHandler.Unfollow)

	authed.GET("/notifications", proxyHandler.Notifications)
	authed.POST("/notifications/read", proxyHandler.MarkRead)
	authed.POST("/notifications/read-selected", uiHandler.MarkSelectedRead)

	authed.GET("/toasts", uiHandler.Toasts)
	authed.GET("/modals", uiHandler.Modals)
	authed.POST("/modals/:id", uiHandler.ResolveModal)
	authed.GET("/tables/:table/selection", uiHandler.Selection)
	authed.PUT("/tables/:table/selection", uiHandler.ReplaceSelection)
	authed.DELETE("/tables/:table/selection", uiHandler.ClearSelection)
	authed.POST("/tables/:table/selection/toggle", uiHandler.ToggleSelection)
	authed.GET("/menu", uiHandler.Menu)

	// Unknown API paths must not fall through to the page shell.
	api.Any("/*", func(c echo.Context) error { return echo.ErrNotFound })

	// --- Pages: every navigation goes through the route guard ---
	pageGuard := middleware.Guard(d.Guard, d.Log)
	e.GET("/", pageHandler.Show, session, locale, pageGuard)
	e.GET("/*", pageHandler.Show, session, locale, pageGuard)

	return e, nil
}

func metricsHandler(reg prometheus.Registerer) echo.HandlerFunc {
	if g, ok := reg.(prometheus.Gatherer); ok {
		return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: g})
	}
	return echoprometheus.NewHandler()
}

// requestLogger logs one line per request with the zerolog logger.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "http").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || p == "/readyz" || p == "/metrics" || strings.HasPrefix(p, "/static/")
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			if v.Error != nil {
				ev = ev.Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
