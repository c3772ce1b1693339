package rest

import (
	"context"
	"net/http"

	"github.com/bwise1/forest_places/internal/creation"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/util"
	"github.com/bwise1/forest_places/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (api *API) DraftRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.GetDraft))
	mux.Method(http.MethodPut, "/", Handler(api.UpdateDraft))
	mux.Method(http.MethodDelete, "/", Handler(api.CancelDraft))
	mux.Method(http.MethodPost, "/files", Handler(api.StageFiles))
	mux.Method(http.MethodDelete, "/files/{id}", Handler(api.UnstageFile))
	mux.Method(http.MethodPost, "/tags", Handler(api.AddTag))

	mux.Group(func(r chi.Router) {
		r.Use(limitRemoteWrites(30))
		r.Method(http.MethodPost, "/submit", Handler(api.SubmitDraft))
	})
	return mux
}

func (api *API) GetDraft(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	d, ok := api.Deps.Creation.Draft()
	if !ok {
		return respondWithFailure(creation.ErrNoDraft, &tc)
	}
	return success("draft", d)
}

func (api *API) UpdateDraft(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req creation.Fields
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	d, err := api.Deps.Creation.Update(req)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("draft updated", d)
}

func (api *API) CancelDraft(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	api.Deps.Creation.Cancel()
	return success("draft discarded", nil)
}

func (api *API) StageFiles(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	inputs, err := readMultipartFiles(w, r)
	if err != nil {
		return respondWithError(err, "unable to read files", values.BadRequestBody, &tc)
	}
	staged, rejected, err := api.Deps.Creation.StageFiles(inputs)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	if staged == nil {
		staged = []model.PendingUpload{}
	}
	return success("files staged", map[string]interface{}{"staged": staged, "rejected": rejected})
}

func (api *API) UnstageFile(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return respondWithError(err, "invalid file id", values.BadRequestBody, &tc)
	}
	if err := api.Deps.Creation.Unstage(id); err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("file removed", nil)
}

func (api *API) AddTag(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req model.NewTag
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	d, err := api.Deps.Creation.AddTag(req.Name, req.Category)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("mushroom type added", d)
}

// SubmitDraft runs the submission. A dropped connection does not cancel the
// remote calls already started. A session rejected during the uploads is
// reported as 401 even though the place was created.
func (api *API) SubmitDraft(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	out, err := api.Deps.Creation.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		return respondWithFailure(err, &tc)
	}

	switch {
	case out.Reauthenticate, out.State == creation.Failed:
		resp := respondWithFailure(out.Err(), &tc)
		resp.Message = out.Message + ": " + resp.Message
		resp.Data = out
		return resp
	case out.State == creation.Succeeded:
		return created(out.Message, out)
	}
	return success(out.Message, out)
}
