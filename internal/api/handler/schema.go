package handler

import (
	"time"

	"github.com/marketlink/marketplace-web/internal/core/domain"
	"github.com/marketlink/marketplace-web/internal/core/state"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Code    string              `json:"code"`
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// --- Session ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=256"`
	Next     string `json:"next"     validate:"omitempty,max=2048"`
}

type sessionResponse struct {
	Authenticated bool                         `json:"authenticated"`
	User          *domain.User                 `json:"user,omitempty"`
	Registration  *domain.RegistrationProgress `json:"registration,omitempty"`
	Menu          []state.MenuItem             `json:"menu"`
	Locale        string                       `json:"locale"`
	Toasts        int                          `json:"pending_toasts"`
	Next          string                       `json:"next,omitempty"`
}

// --- Registration ---

type draftRequest struct {
	Fields map[string]string `json:"fields" validate:"max=50,dive,keys,required,max=64,endkeys,max=2048"`
}

type draftResponse struct {
	Step      domain.RegistrationStep `json:"step"`
	Fields    map[string]string       `json:"fields"`
	UpdatedAt *time.Time              `json:"updated_at,omitempty"`
}

type stepResponse struct {
	Registration domain.RegistrationProgress `json:"registration"`
	Next         string                      `json:"next"`
}

// --- UI state ---

type decisionRequest struct {
	Decision state.Decision `json:"decision" validate:"required,oneof=confirm cancel"`
}

type toggleRequest struct {
	ID string `json:"id" validate:"required,max=128"`
}

type selectionRequest struct {
	IDs []string `json:"ids" validate:"max=500,dive,required,max=128"`
}

type selectionResponse struct {
	Table    string   `json:"table"`
	Selected []string `json:"selected"`
}

type toggleResponse struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

type searchHistoryResponse struct {
	Queries []string `json:"queries"`
}

type markedReadResponse struct {
	Marked int `json:"marked"`
}

// --- Catalog, cart, orders ---

type cartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Quantity  int    `json:"quantity"   validate:"required,gt=0,max=10000"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0,max=10000"`
}

type markReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,required,max=128"`
}

// --- Locale ---

type localeRequest struct {
	Locale string `json:"locale" validate:"required,max=35"`
}

type localeResponse struct {
	Locale    string   `json:"locale"`
	Supported []string `json:"supported"`
}
