package ports

import (
	"context"
	"net/url"
)

// APIRequest describes one call to the backend marketplace API.
type APIRequest struct {
	Method string
	// Path is relative to the configured base URL, e.g. "/orders/42". Dynamic
	// segments must already be escaped with url.PathEscape.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Token is sent as a bearer credential when non-empty.
	Token string
}

// APIClient performs backend requests. Every failure it returns is a
// *domain.APIError.
type APIClient interface {
	Do(ctx context.Context, req APIRequest, out any) error
}
