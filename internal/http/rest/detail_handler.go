package rest

import (
	"context"
	"net/http"

	"github.com/bwise1/forest_places/internal/detail"
	"github.com/bwise1/forest_places/util"
	"github.com/bwise1/forest_places/util/values"
	"github.com/go-chi/chi/v5"
)

const defaultGalleryHeight = 400

func (api *API) DetailRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.GetDetail))
	mux.Method(http.MethodDelete, "/", Handler(api.CloseDetail))
	mux.Method(http.MethodPost, "/keys", Handler(api.DetailKey))
	mux.Method(http.MethodPost, "/backdrop", Handler(api.DetailBackdrop))
	mux.Method(http.MethodGet, "/photos", Handler(api.DetailPhotos))
	mux.Method(http.MethodPost, "/photos/more", Handler(api.ShowMorePhotos))

	mux.Group(func(r chi.Router) {
		r.Use(limitRemoteWrites(30))
		r.Method(http.MethodPost, "/images", Handler(api.UploadDetailImages))
	})
	return mux
}

func (api *API) GetDetail(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	view, ok := api.Deps.Detail.Current()
	if !ok {
		return respondWithFailure(detail.ErrNothingOpen, &tc)
	}
	return success("place", view)
}

func (api *API) CloseDetail(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return success("closed", map[string]bool{"closed": api.Deps.Detail.Close()})
}

func (api *API) DetailKey(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req struct {
		Key string `json:"key"`
	}
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	return success("key handled", map[string]bool{"closed": api.Deps.Detail.HandleKey(req.Key)})
}

func (api *API) DetailBackdrop(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return success("backdrop handled", map[string]bool{"closed": api.Deps.Detail.Backdrop()})
}

func (api *API) DetailPhotos(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	offset, err := util.ParseIntParam(r, "offset", 0)
	if err != nil {
		return respondWithError(err, err.Error(), values.BadRequestBody, &tc)
	}
	height, err := util.ParseIntParam(r, "height", defaultGalleryHeight)
	if err != nil {
		return respondWithError(err, err.Error(), values.BadRequestBody, &tc)
	}
	window, err := api.Deps.Detail.Photos(r.Context(), offset, height)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("photos", window)
}

func (api *API) ShowMorePhotos(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	view, err := api.Deps.Detail.ShowMore()
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("photos revealed", view)
}

// UploadDetailImages is only reachable for the owner of the open place;
// everyone else gets a 404 without the form being read.
func (api *API) UploadDetailImages(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	if api.Deps.Detail.UploadAffordance() == nil {
		return respondWithFailure(detail.ErrNoAffordance, &tc)
	}
	inputs, err := readMultipartFiles(w, r)
	if err != nil {
		return respondWithError(err, "unable to read files", values.BadRequestBody, &tc)
	}
	out, err := api.Deps.Detail.Upload(context.WithoutCancel(r.Context()), inputs)
	if err != nil {
		resp := respondWithFailure(err, &tc)
		if out != nil {
			resp.Data = out
		}
		return resp
	}
	return success(out.Message, out)
}
