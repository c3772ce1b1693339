package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwise1/forest_places/config"
	deps "github.com/bwise1/forest_places/internal/debs"
	"github.com/bwise1/forest_places/util/values"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 2 * time.Minute
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies

	taxonomy taxonomyCache
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.Routes(),
	}
	return api.Server.ListenAndServe()
}

// Routes builds the bridge handler.
func (api *API) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: api.Config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", values.HeaderRequestID, values.HeaderRequestSource},
		ExposedHeaders: []string{values.HeaderRequestID},
		MaxAge:         300,
	}))
	mux.Use(RequestTracing)
	mux.Use(Instrument)

	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	mux.Method(http.MethodGet, "/mushroom-types", Handler(api.ListMushroomTypes))

	mux.Mount("/places", api.PlaceRoutes())
	mux.Mount("/map", api.MapRoutes())
	mux.Mount("/draft", api.DraftRoutes())
	mux.Mount("/detail", api.DetailRoutes())
	mux.Mount("/auth", api.AuthRoutes())

	return mux
}

func (api *API) Shutdown(ctx context.Context) error {
	if api.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownPeriod)
	defer cancel()
	return api.Server.Shutdown(ctx)
}
