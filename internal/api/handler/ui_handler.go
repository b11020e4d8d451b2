package handler

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/service"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// notificationsTable is the selection key of the notification list.
const notificationsTable = "notifications"

var tableName = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,39}$`)

// UIHandler exposes the per-session UI stores: toasts, confirmation modals,
// table selections, search history and the navigation menu.
type UIHandler struct {
	api ports.APIClient
}

func NewUIHandler(api ports.APIClient) *UIHandler {
	return &UIHandler{api: api}
}

// Toasts handles GET /api/toasts. Returned toasts are removed from the queue.
//
// @Summary      Drain toasts
// @Tags         ui
// @Produce      json
// @Success      200  {array}  state.Toast
// @Router       /api/toasts [get]
func (h *UIHandler) Toasts(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b.Scope.Toasts.Drain())
}

// Modals handles GET /api/modals.
//
// @Summary      Pending confirmations
// @Tags         ui
// @Produce      json
// @Success      200  {array}  state.ConfirmRequest
// @Router       /api/modals [get]
func (h *UIHandler) Modals(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b.Scope.Modals.Pending())
}

// ResolveModal handles POST /api/modals/:id.
//
// @Summary      Answer a confirmation
// @Tags         ui
// @Accept       json
// @Param        id    path  string           true  "Confirmation ID"
// @Param        body  body  decisionRequest  true  "Decision"
// @Success      204
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/modals/{id} [post]
func (h *UIHandler) ResolveModal(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := b.Scope.Modals.Resolve(c.Param("id"), req.Decision); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Selection handles GET /api/tables/:table/selection.
//
// @Summary      Selected rows
// @Tags         ui
// @Produce      json
// @Param        table  path      string  true  "Table key"
// @Success      200    {object}  selectionResponse
// @Router       /api/tables/{table}/selection [get]
func (h *UIHandler) Selection(c echo.Context) error {
	b, table, err := h.table(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, selectionResponse{Table: table, Selected: b.Scope.Tables.Selected(table)})
}

// ToggleSelection handles POST /api/tables/:table/selection/toggle.
//
// @Summary      Toggle a row
// @Tags         ui
// @Accept       json
// @Produce      json
// @Param        table  path      string         true  "Table key"
// @Param        body   body      toggleRequest  true  "Row ID"
// @Success      200    {object}  toggleResponse
// @Router       /api/tables/{table}/selection/toggle [post]
func (h *UIHandler) ToggleSelection(c echo.Context) error {
	b, table, err := h.table(c)
	if err != nil {
		return err
	}
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toggleResponse{ID: req.ID, Selected: b.Scope.Tables.Toggle(table, req.ID)})
}

// ReplaceSelection handles PUT /api/tables/:table/selection.
//
// @Summary      Replace the selection
// @Tags         ui
// @Accept       json
// @Produce      json
// @Param        table  path      string            true  "Table key"
// @Param        body   body      selectionRequest  true  "Row IDs"
// @Success      200    {object}  selectionResponse
// @Router       /api/tables/{table}/selection [put]
func (h *UIHandler) ReplaceSelection(c echo.Context) error {
	b, table, err := h.table(c)
	if err != nil {
		return err
	}
	var req selectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b.Scope.Tables.Replace(table, req.IDs)
	return c.JSON(http.StatusOK, selectionResponse{Table: table, Selected: b.Scope.Tables.Selected(table)})
}

// ClearSelection handles DELETE /api/tables/:table/selection.
//
// @Summary      Clear the selection
// @Tags         ui
// @Param        table  path  string  true  "Table key"
// @Success      204
// @Router       /api/tables/{table}/selection [delete]
func (h *UIHandler) ClearSelection(c echo.Context) error {
	b, table, err := h.table(c)
	if err != nil {
		return err
	}
	b.Scope.Tables.ClearTable(table)
	return c.NoContent(http.StatusNoContent)
}

// MarkSelectedRead handles POST /api/notifications/read-selected: the
// selected notifications are marked read in one backend call and the
// selection is cleared.
//
// @Summary      Mark selected notifications read
// @Tags         notifications
// @Produce      json
// @Success      200  {object}  markedReadResponse
// @Router       /api/notifications/read-selected [post]
func (h *UIHandler) MarkSelectedRead(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	ids := b.Scope.Tables.Selected(notificationsTable)
	if len(ids) == 0 {
		return c.JSON(http.StatusOK, markedReadResponse{})
	}

	err = h.api.Do(c.Request().Context(), ports.APIRequest{
		Method: http.MethodPost,
		Path:   "/notifications/read",
		Body:   markReadRequest{IDs: ids},
		Token:  b.Token(),
	}, nil)
	if err != nil {
		return err
	}
	b.Scope.Tables.ClearTable(notificationsTable)
	return c.JSON(http.StatusOK, markedReadResponse{Marked: len(ids)})
}

// SearchHistory handles GET /api/search/history.
//
// @Summary      Recent searches
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  searchHistoryResponse
// @Router       /api/search/history [get]
func (h *UIHandler) SearchHistory(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchHistoryResponse{Queries: b.Scope.Search.Recent()})
}

// ClearSearchHistory handles DELETE /api/search/history.
//
// @Summary      Forget recent searches
// @Tags         catalog
// @Success      204
// @Router       /api/search/history [delete]
func (h *UIHandler) ClearSearchHistory(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	b.Scope.Search.Clear()
	return c.NoContent(http.StatusNoContent)
}

// Menu handles GET /api/menu.
//
// @Summary      Navigation menu
// @Tags         ui
// @Produce      json
// @Success      200  {array}  state.MenuItem
// @Router       /api/menu [get]
func (h *UIHandler) Menu(c echo.Context) error {
	_, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state.MenuFor(user))
}

func (h *UIHandler) table(c echo.Context) (*service.Binding, string, error) {
	b, _, err := ctxSession(c)
	if err != nil {
		return nil, "", err
	}
	table := c.Param("table")
	if !tableName.MatchString(table) {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid table")
	}
	return b, table, nil
}
