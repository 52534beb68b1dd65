package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnauthorized marks errors caused by a missing, expired or rejected token.
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// newAPIError builds an APIError from a response body. FastAPI puts a
// string or a validation list in "detail".
func newAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			apiErr.Detail = s
		} else {
			apiErr.Detail = string(payload.Detail)
		}
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}

	if status == http.StatusUnauthorized {
		return errors.Mark(apiErr, ErrUnauthorized)
	}
	return apiErr
}

// Detail returns the user-facing detail of a backend error, or fallback.
func Detail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
