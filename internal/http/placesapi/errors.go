package placesapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the remote service.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// AuthFailure reports a rejected credential.
func (e *APIError) AuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Mutating reports whether the failed call was a write.
func (e *APIError) Mutating() bool {
	return e.Method != http.MethodGet && e.Method != http.MethodHead
}

func newAPIError(req *http.Request, resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Status:  resp.StatusCode,
		Message: errorMessage(resp.StatusCode, raw),
		Method:  req.Method,
		Path:    req.URL.Path,
	}
}

// errorMessage prefers a JSON "message", then "error", then the raw body.
func errorMessage(status int, raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &body) == nil {
			if body.Message != "" {
				return body.Message
			}
			if body.Error != "" {
				return body.Error
			}
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}
