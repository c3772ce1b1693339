package creation

import (
	"fmt"
	"strings"

	"github.com/bwise1/forest_places/util"
	"github.com/pkg/errors"
)

var (
	ErrNoDraft          = errors.New("no draft is open")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrUnknownFile      = errors.New("staged file not found")
)

// ValidationError is a local rejection of user input. It is never sent to
// the remote service.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var tagReasons = map[string]string{
	"notblank":  "must not be empty",
	"required":  "is required",
	"max":       "is too long",
	"latitude":  "must be between -90 and 90",
	"longitude": "must be between -180 and 180",
}

// validationError converts the first validator failure into a
// *ValidationError. Errors that carry no field are reported against the
// whole draft.
func validationError(err error) *ValidationError {
	fields := util.FieldErrors(err)
	for _, name := range []string{"Title", "Latitude", "Longitude", "Name"} {
		if tag, ok := fields[name]; ok {
			return &ValidationError{Field: jsonName(name), Reason: reason(tag)}
		}
	}
	if msg, ok := fields[""]; ok && msg != "" {
		return &ValidationError{Field: "draft", Reason: msg}
	}
	for name, tag := range fields {
		if name != "" {
			return &ValidationError{Field: jsonName(name), Reason: reason(tag)}
		}
	}
	return &ValidationError{Field: "draft", Reason: "is invalid"}
}

func reason(tag string) string {
	if r, ok := tagReasons[tag]; ok {
		return r
	}
	return "is invalid"
}

func jsonName(field string) string {
	if field == "" {
		return "draft"
	}
	return strings.ToLower(field[:1]) + field[1:]
}
