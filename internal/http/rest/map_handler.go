package rest

import (
	"net/http"
	"strconv"

	"github.com/bwise1/forest_places/internal/cluster"
	"github.com/bwise1/forest_places/util"
	"github.com/bwise1/forest_places/util/values"
	"github.com/go-chi/chi/v5"
)

const (
	defaultViewportWidth  = 1024
	defaultViewportHeight = 768
)

func (api *API) MapRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/markers", Handler(api.GetMarkers))
	mux.Method(http.MethodPost, "/clusters/{id}/click", Handler(api.ClickCluster))
	mux.Method(http.MethodPost, "/markers/{placeID}/click", Handler(api.ClickMarker))
	mux.HandleFunc("/stream", api.Deps.WebSocket.HandleConnections)

	mux.Group(func(r chi.Router) {
		r.Use(limitRemoteWrites(60))
		r.Method(http.MethodPost, "/click", Handler(api.ClickMap))
	})
	return mux
}

type markerSet struct {
	Version uint64           `json:"version"`
	Zoom    int              `json:"zoom"`
	Markers []cluster.Marker `json:"markers"`
}

// GetMarkers returns the partitioned markers in the viewport, plus the
// draft marker when a draft is open inside it.
func (api *API) GetMarkers(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	vp, err := parseViewport(r)
	if err != nil {
		return respondWithError(err, err.Error(), values.BadRequestBody, &tc)
	}

	version := api.Deps.Places.Version()
	markers, err := api.Deps.Renderer.Markers(vp)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	if d, ok := api.Deps.Creation.Draft(); ok && vp.Bounds.Contains(d.Latitude, d.Longitude) {
		markers = append(markers, cluster.Marker{
			Cluster: cluster.Cluster{ID: "draft", Latitude: d.Latitude, Longitude: d.Longitude, Count: 1, MemberIDs: []int64{}},
			Icon:    api.Deps.Icons.RenderDraft(),
		})
	}

	return success("markers", markerSet{Version: version, Zoom: vp.Zoom, Markers: markers})
}

func (api *API) ClickCluster(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	vp, err := parseViewport(r)
	if err != nil {
		return respondWithError(err, err.Error(), values.BadRequestBody, &tc)
	}
	result, err := api.Deps.Renderer.ClickCluster(chi.URLParam(r, "id"), vp)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("cluster "+result.Action, result)
}

func (api *API) ClickMarker(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "placeID"), 10, 64)
	if err != nil {
		return respondWithError(err, "invalid place id", values.BadRequestBody, &tc)
	}
	view, opened, err := api.Deps.Detail.Open(id)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return success("place opened", map[string]interface{}{"opened": opened, "view": view})
}

// ClickMap opens a draft at the clicked coordinate.
func (api *API) ClickMap(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	var req util.Coordinate
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	draft, err := api.Deps.Creation.Open(req.Lat, req.Lon)
	if err != nil {
		return respondWithFailure(err, &tc)
	}
	return created("draft opened", draft)
}

func parseViewport(r *http.Request) (cluster.Viewport, error) {
	zoom, err := util.ParseIntParam(r, "zoom", -1)
	if err != nil {
		return cluster.Viewport{}, err
	}
	if zoom < 0 {
		return cluster.Viewport{}, cluster.ErrInvalidZoom
	}
	vp := cluster.Viewport{Zoom: zoom}
	for _, p := range []struct {
		name string
		dst  *float64
		def  float64
	}{
		{"north", &vp.Bounds.North, 85.0511},
		{"south", &vp.Bounds.South, -85.0511},
		{"east", &vp.Bounds.East, 180},
		{"west", &vp.Bounds.West, -180},
	} {
		if *p.dst, err = util.ParseFloatParam(r, p.name, p.def); err != nil {
			return cluster.Viewport{}, err
		}
	}
	if vp.Width, err = util.ParseIntParam(r, "width", defaultViewportWidth); err != nil {
		return cluster.Viewport{}, err
	}
	if vp.Height, err = util.ParseIntParam(r, "height", defaultViewportHeight); err != nil {
		return cluster.Viewport{}, err
	}
	return vp, nil
}
