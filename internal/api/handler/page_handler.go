package handler

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/api/middleware"
	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateRenderer renders the HTML page shell.
type TemplateRenderer struct {
	t *template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.New("root").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{t: t}, nil
}

// Render satisfies echo.Renderer.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

type pageBootstrap struct {
	Authenticated bool                         `json:"authenticated"`
	User          *domain.User                 `json:"user,omitempty"`
	Registration  *domain.RegistrationProgress `json:"registration,omitempty"`
	Menu          []state.MenuItem             `json:"menu"`
	Locale        string                       `json:"locale"`
}

type pageData struct {
	Title     string
	Locale    string
	Path      string
	Menu      []state.MenuItem
	Bootstrap pageBootstrap
}

// PageHandler serves the single page shell for every navigation the guard
// lets through. The client application takes over from the bootstrap data.
type PageHandler struct {
	title string
}

func NewPageHandler(title string) *PageHandler {
	return &PageHandler{title: title}
}

// Show renders the shell for the current path.
func (h *PageHandler) Show(c echo.Context) error {
	user := middleware.UserFrom(c)
	locale := middleware.LocaleFrom(c)
	menu := state.MenuFor(user)

	boot := pageBootstrap{Authenticated: user != nil, User: user, Menu: menu, Locale: locale}
	if user != nil {
		progress := user.Progress()
		boot.Registration = &progress
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Render(http.StatusOK, "shell", pageData{
		Title:     h.title,
		Locale:    locale,
		Path:      c.Request().URL.Path,
		Menu:      menu,
		Bootstrap: boot,
	})
}
