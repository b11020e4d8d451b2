package apiclient

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/marketlink/marketplace-web/internal/core/domain"
)

// errorBody covers the envelopes the backend answers failures with:
// {"message": "...", "errors": {"field": ["msg", ...]}} and
// {"error": "...", "fields": [{"field": "...", "message": "..."}]}.
type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string]fieldMsg `json:"errors"`
	Fields  []domain.FieldError `json:"fields"`
}

// fieldMsg accepts either a single message or a list of messages.
type fieldMsg []string

func (f *fieldMsg) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*f = fieldMsg{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

func decodeError(resp *http.Response) *domain.APIError {
	apiErr := &domain.APIError{
		Kind:   domain.KindForStatus(resp.StatusCode),
		Status: resp.StatusCode,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var body errorBody
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		apiErr.Message = firstNonEmpty(body.Message, body.Error)
		apiErr.Fields = collectFields(body)
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	return apiErr
}

func collectFields(body errorBody) []domain.FieldError {
	fields := append([]domain.FieldError(nil), body.Fields...)

	names := make([]string, 0, len(body.Errors))
	for name := range body.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, msg := range body.Errors[name] {
			fields = append(fields, domain.FieldError{Field: name, Message: msg})
		}
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
