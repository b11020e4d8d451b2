package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/ports"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// Filters forwarded verbatim next to the table paging parameters.
var tableFilters = []string{"q", "category", "status", "supplier_id", "unread"}

// ProxyHandler forwards catalog, cart, order, connection and notification
// calls to the backend with the session's bearer token.
type ProxyHandler struct {
	api ports.APIClient
}

func NewProxyHandler(api ports.APIClient) *ProxyHandler {
	return &ProxyHandler{api: api}
}

// --- Catalog ---

// Products handles GET /api/catalog/products.
//
// @Summary      List products
// @Tags         catalog
// @Produce      json
// @Param        page      query     int     false  "Page (1-based)"
// @Param        limit     query     int     false  "Page size (max 100)"
// @Param        sort      query     string  false  "Sort field, '-' prefix for descending"
// @Param        category  query     string  false  "Category filter"
// @Success      200       {object}  map[string]any
// @Failure      401       {object}  errorResponse
// @Router       /api/catalog/products [get]
func (h *ProxyHandler) Products(c echo.Context) error {
	return h.forward(c, http.MethodGet, "/products", tableQuery(c), nil)
}

// Product handles GET /api/catalog/products/:id.
//
// @Summary      Get a product
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  errorResponse
// @Router       /api/catalog/products/{id} [get]
func (h *ProxyHandler) Product(c echo.Context) error {
	return h.forward(c, http.MethodGet, "/products/"+url.PathEscape(c.Param("id")), nil, nil)
}

// Search handles GET /api/catalog/search and records the query in the
// session's search history.
//
// @Summary      Search the catalog
// @Tags         catalog
// @Produce      json
// @Param        q    query     string  true  "Query"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  errorResponse
// @Router       /api/catalog/search [get]
func (h *ProxyHandler) Search(c echo.Context) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	if len(q) > 200 {
		return echo.NewHTTPError(http.StatusBadRequest, "q is too long")
	}
	b.Scope.Search.Record(q)
	return h.forward(c, http.MethodGet, "/catalog/search", tableQuery(c), nil)
}

// --- Cart (buyers) ---

// Cart handles GET /api/cart.
//
// @Summary      Get the cart
// @Tags         cart
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  errorResponse
// @Router       /api/cart [get]
func (h *ProxyHandler) Cart(c echo.Context) error {
	return h.forward(c, http.MethodGet, "/cart", nil, nil)
}

// AddCartItem handles POST /api/cart/items.
//
// @Summary      Add a cart item
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        body  body      cartItemRequest  true  "Item"
// @Success      200   {object}  map[string]any
// @Failure      422   {object}  errorResponse
// @Router       /api/cart/items [post]
func (h *ProxyHandler) AddCartItem(c echo.Context) error {
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.forward(c, http.MethodPost, "/cart/items", nil, req)
}

// UpdateCartItem handles PATCH /api/cart/items/:id.
//
// @Summary      Change an item quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "Cart item ID"
// @Param        body  body      cartQuantityRequest  true  "Quantity"
// @Success      200   {object}  map[string]any
// @Failure      422   {object}  errorResponse
// @Router       /api/cart/items/{id} [patch]
func (h *ProxyHandler) UpdateCartItem(c echo.Context) error {
	var req cartQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.forward(c, http.MethodPatch, "/cart/items/"+url.PathEscape(c.Param("id")), nil, req)
}

// RemoveCartItem handles DELETE /api/cart/items/:id.
//
// @Summary      Remove a cart item
// @Tags         cart
// @Success      204
// @Router       /api/cart/items/{id} [delete]
func (h *ProxyHandler) RemoveCartItem(c echo.Context) error {
	return h.forward(c, http.MethodDelete, "/cart/items/"+url.PathEscape(c.Param("id")), nil, nil)
}

// --- Orders ---

// Purchases handles GET /api/buyer/orders.
//
// @Summary      List purchases
// @Tags         orders
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/buyer/orders [get]
func (h *ProxyHandler) Purchases(c echo.Context) error {
	q := tableQuery(c)
	q.Set("role", string(domain.RoleBuyer))
	return h.forward(c, http.MethodGet, "/orders", q, nil)
}

// Sales handles GET /api/supplier/orders.
//
// @Summary      List sales
// @Tags         orders
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/supplier/orders [get]
func (h *ProxyHandler) Sales(c echo.Context) error {
	q := tableQuery(c)
	q.Set("role", string(domain.RoleSupplier))
	return h.forward(c, http.MethodGet, "/orders", q, nil)
}

// Order handles GET /api/orders/:id.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  errorResponse
// @Router       /api/orders/{id} [get]
func (h *ProxyHandler) Order(c echo.Context) error {
	return h.forward(c, http.MethodGet, "/orders/"+url.PathEscape(c.Param("id")), nil, nil)
}

// ApproveCancellation handles POST /api/supplier/orders/:id/cancellation/approve.
//
// @Summary      Approve a cancellation request
// @Tags         orders
// @Param        id   path  string  true  "Order ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Router       /api/supplier/orders/{id}/cancellation/approve [post]
func (h *ProxyHandler) ApproveCancellation(c echo.Context) error {
	return h.forward(c, http.MethodPost, "/orders/"+url.PathEscape(c.Param("id"))+"/cancellation/approve", nil, nil)
}

// --- Connections ---

// Connections handles GET /api/connections.
//
// @Summary      List connections
// @Tags         connections
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/connections [get]
func (h *ProxyHandler) Connections(c echo.Context) error {
	return h.forward(c, http.MethodGet, "/connections", tableQuery(c), nil)
}

// Follow handles POST /api/connections/:id/follow.
//
// @Summary      Follow a company
// @Tags         connections
// @Param        id   path  string  true  "Company ID"
// @Success      204
// @Router       /api/connections/{id}/follow [post]
func (h *ProxyHandler) Follow(c echo.Context) error {
	return h.forward(c, http.MethodPost, "/connections/"+url.PathEscape(c.Param("id"))+"/follow", nil, nil)
}

// Unfollow handles DELETE /api/connections/:id/follow.
//
// @Summary      Unfollow a company
// @Tags         connections
// @Param        id   path  string  true  "Company ID"
// @Success      204
// @Router       /api/connections/{id}/follow [delete]
func (h *ProxyHandler) Unfollow(c echo.Context) error {
	return h.forward(c, http.MethodDelete, "/connections/"+url.PathEscape(c.Param("id"))+"/follow", nil, nil)
}

// --- Notifications ---

// Notifications handles GET /api/notifications.
//
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/notifications [get]
func (h *ProxyHandler) Notifications(c echo.Context) error {
	return h.forward(c, http.MethodGet, "/notifications", tableQuery(c), nil)
}

// MarkRead handles POST /api/notifications/read.
//
// @Summary      Mark notifications read
// @Tags         notifications
// @Accept       json
// @Param        body  body  markReadRequest  true  "Notification IDs"
// @Success      204
// @Failure      422   {object}  errorResponse
// @Router       /api/notifications/read [post]
func (h *ProxyHandler) MarkRead(c echo.Context) error {
	var req markReadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return h.forward(c, http.MethodPost, "/notifications/read", nil, req)
}

// forward calls the backend and relays its JSON body unchanged.
func (h *ProxyHandler) forward(c echo.Context, method, path string, query url.Values, body any) error {
	b, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var raw json.RawMessage
	err = h.api.Do(c.Request().Context(), ports.APIRequest{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
		Token:  b.Token(),
	}, &raw)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// tableQuery normalizes paging and sorting and keeps the known filters.
func tableQuery(c echo.Context) url.Values {
	in := c.QueryParams()
	q := state.ParseTableQuery(in).Values()
	for _, key := range tableFilters {
		if v := strings.TrimSpace(in.Get(key)); v != "" {
			q.Set(key, v)
		}
	}
	return q
}
