package rest

import (
	"net/http"

	"github.com/bwise1/forest_places/internal/cluster"
	"github.com/bwise1/forest_places/internal/creation"
	"github.com/bwise1/forest_places/internal/detail"
	"github.com/bwise1/forest_places/internal/http/placesapi"
	"github.com/bwise1/forest_places/internal/session"
	"github.com/bwise1/forest_places/util"
	"github.com/bwise1/forest_places/util/tracing"
	"github.com/bwise1/forest_places/util/values"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ServerResponse is the envelope of every bridge response.
type ServerResponse struct {
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

func writeJSONResponse(w http.ResponseWriter, content []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(content); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	if err != nil {
		log.Warn().Err(err).Str("status", status).Msg(message)
	}
	body, _ := json.Marshal(ServerResponse{Message: message, Status: status})
	writeJSONResponse(w, body, util.StatusCode(status))
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	event := log.Warn()
	if util.StatusCode(status) >= http.StatusInternalServerError {
		event = log.Error()
	}
	if tc != nil {
		event = event.Str("request_id", tc.RequestID).Str("source", tc.RequestSource)
	}
	event.Err(err).Str("status", status).Msg(message)

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

// respondWithFailure maps a workflow error to a response. Validation and
// authorization failures carry their details in Data.
func respondWithFailure(err error, tc *tracing.Context) *ServerResponse {
	var (
		verr    *creation.ValidationError
		authErr *session.AuthorizationError
		apiErr  *placesapi.APIError
	)
	switch {
	case errors.As(err, &verr):
		resp := respondWithError(err, verr.Error(), values.BadRequestBody, tc)
		resp.Data = verr
		return resp
	case errors.As(err, &authErr):
		resp := respondWithError(err, authErr.Reason, values.NotAuthorised, tc)
		resp.Data = map[string]bool{"reauthenticate": authErr.Reauthenticate}
		return resp
	case errors.Is(err, creation.ErrSubmitInProgress), errors.Is(err, detail.ErrUploadInProgress):
		return respondWithError(err, err.Error(), values.Conflict, tc)
	case errors.Is(err, creation.ErrNoDraft), errors.Is(err, creation.ErrUnknownFile),
		errors.Is(err, detail.ErrNothingOpen), errors.Is(err, detail.ErrUnknownPlace),
		errors.Is(err, detail.ErrNoAffordance), errors.Is(err, cluster.ErrUnknownCluster):
		return respondWithError(err, err.Error(), values.NotFound, tc)
	case errors.Is(err, cluster.ErrInvalidZoom), errors.Is(err, detail.ErrNoFilesToUpload):
		return respondWithError(err, err.Error(), values.BadRequestBody, tc)
	case errors.As(err, &apiErr):
		return respondWithError(err, apiErr.Message, apiStatus(apiErr), tc)
	}
	return respondWithError(err, "request failed", values.Error, tc)
}

func apiStatus(e *placesapi.APIError) string {
	switch {
	case e.Status == http.StatusNotFound:
		return values.NotFound
	case e.AuthFailure():
		return values.NotAuthorised
	case e.Status == http.StatusConflict:
		return values.Conflict
	case e.Status >= 400 && e.Status < 500:
		return values.BadRequestBody
	}
	return values.Upstream
}

func tracingFrom(r *http.Request) tracing.Context {
	tc, _ := r.Context().Value(values.ContextTracingKey).(tracing.Context)
	return tc
}

func success(message string, data interface{}) *ServerResponse {
	return &ServerResponse{
		Message:    message,
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       data,
	}
}

func created(message string, data interface{}) *ServerResponse {
	return &ServerResponse{
		Message:    message,
		Status:     values.Created,
		StatusCode: util.StatusCode(values.Created),
		Data:       data,
	}
}
