package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Code    string              `json:"code"`
	Error   string              `json:"error"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the backend error taxonomy and known domain errors to HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"code": "...", "error": "...", "details": [...]}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Code: codeForStatus(he.Code), Error: fmt.Sprintf("%v", he.Message)}
	}

	var ae *domain.APIError
	if errors.As(err, &ae) {
		return resolveAPIError(ae, log, c)
	}

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrScopeClosed):
		return http.StatusUnauthorized, errorResponse{Code: string(domain.KindAuth), Error: "authentication required"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Code: string(domain.KindForbidden), Error: "access forbidden"}
	case errors.Is(err, domain.ErrModalNotFound):
		return http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Error: "confirmation request not found"}
	case errors.Is(err, domain.ErrModalResolved):
		return http.StatusConflict, errorResponse{Code: "CONFLICT", Error: "confirmation request already resolved"}
	case errors.Is(err, domain.ErrUnknownStep):
		return http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Error: "unknown registration step"}
	case errors.Is(err, domain.ErrStepNotAccessible):
		return http.StatusConflict, errorResponse{Code: "CONFLICT", Error: err.Error()}
	case errors.Is(err, domain.ErrDraftNotFound):
		return http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Error: "registration draft not found"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Code: string(domain.KindUnknown), Error: "internal server error"}
}

func resolveAPIError(ae *domain.APIError, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	body := errorResponse{Code: string(ae.Kind), Error: ae.Message}

	switch ae.Kind {
	case domain.KindNetwork:
		body.Error = "backend unavailable"
		return http.StatusServiceUnavailable, body
	case domain.KindAuth:
		return http.StatusUnauthorized, body
	case domain.KindForbidden:
		return http.StatusForbidden, body
	case domain.KindValidation:
		body.Details = ae.Fields
		return http.StatusUnprocessableEntity, body
	case domain.KindAPI:
		// Client errors pass through; backend failures surface as a bad gateway.
		if ae.Status >= 400 && ae.Status < 500 {
			return ae.Status, body
		}
		log.Warn().Err(ae).Str("path", c.Path()).Msg("backend error")
		return http.StatusBadGateway, body
	}

	log.Error().
		Err(ae).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unclassified backend error")
	body.Error = "unexpected backend response"
	return http.StatusBadGateway, body
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return string(domain.KindAuth)
	case http.StatusForbidden:
		return string(domain.KindForbidden)
	case http.StatusUnprocessableEntity:
		return string(domain.KindValidation)
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusConflict:
		return "CONFLICT"
	}
	if status >= 500 {
		return string(domain.KindUnknown)
	}
	return string(domain.KindAPI)
}
