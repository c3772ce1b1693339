package rest

import (
	"context"
	"net/http"
	"sync"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/go-chi/chi/v5"
)

func (api *API) PlaceRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListPlaces))
	mux.Method(http.MethodPost, "/refresh", Handler(api.RefreshPlaces))
	return mux
}

func (api *API) ListPlaces(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return success("places", api.Deps.Places.List())
}

// RefreshPlaces replaces the list with a fresh load from the remote service.
func (api *API) RefreshPlaces(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	if err := api.Deps.Places.Refresh(r.Context(), api.Deps.PlacesAPI); err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("places reloaded", map[string]interface{}{
		"count":   api.Deps.Places.Len(),
		"version": api.Deps.Places.Version(),
	})
}

// taxonomyCache keeps the mushroom types for the lifetime of the process.
// Failed loads are not cached.
type taxonomyCache struct {
	mu    sync.Mutex
	types []model.MushroomType
}

func (c *taxonomyCache) get(ctx context.Context, load func(context.Context) ([]model.MushroomType, error)) ([]model.MushroomType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.types != nil {
		return c.types, nil
	}
	types, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []model.MushroomType{}
	}
	c.types = types
	return types, nil
}

func (api *API) ListMushroomTypes(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	types, err := api.taxonomy.get(r.Context(), api.Deps.PlacesAPI.ListMushroomTypes)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("mushroom types", types)
}
