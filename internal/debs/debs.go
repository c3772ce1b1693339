package deps

import (
	"context"

	"github.com/bwise1/forest_places/config"
	"github.com/bwise1/forest_places/internal/address"
	"github.com/bwise1/forest_places/internal/cluster"
	"github.com/bwise1/forest_places/internal/creation"
	"github.com/bwise1/forest_places/internal/db"
	"github.com/bwise1/forest_places/internal/detail"
	"github.com/bwise1/forest_places/internal/http/nominatim"
	"github.com/bwise1/forest_places/internal/http/placesapi"
	"github.com/bwise1/forest_places/internal/places"
	"github.com/bwise1/forest_places/internal/session"
	"github.com/bwise1/forest_places/util/websockets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Dependencies struct {
	DB        *db.DB
	PlacesAPI *placesapi.Client
	Geocoder  *nominatim.Client
	Session   *session.Store
	Gate      *session.Gate
	Places    *places.Store
	Icons     cluster.BadgeIcons
	Renderer  *cluster.Renderer
	Address   *address.Resolver
	Creation  *creation.Orchestrator
	Detail    *detail.Controller
	WebSocket *websockets.WebSocketManager
}

func New(cfg *config.Config) (*Dependencies, error) {
	database, err := db.New(cfg.StateDir)
	if err != nil {
		return nil, errors.Wrap(err, "open state store")
	}

	api, err := placesapi.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	if err != nil {
		database.Close()
		return nil, errors.Wrap(err, "places api client")
	}

	geocoder, err := nominatim.NewClient(nominatim.Options{
		BaseURL:   cfg.GeocoderBaseURL,
		UserAgent: cfg.GeocoderUserAgent,
		Language:  cfg.GeocoderLanguage,
		Timeout:   cfg.HTTPTimeout,
		RPS:       cfg.GeocoderRPS,
	})
	if err != nil {
		database.Close()
		return nil, errors.Wrap(err, "geocoder client")
	}

	sessions := session.NewStore(database)
	if err := sessions.Hydrate(context.Background()); err != nil {
		log.Warn().Err(err).Msg("unable to restore session")
	}
	api.Token = sessions.Token
	gate := session.NewGate(sessions)

	list := places.NewStore()
	icons := cluster.BadgeIcons{CurrentUser: func() (int64, bool) {
		s, ok := sessions.Current()
		return s.UserID, ok && s.UserID != 0
	}}
	renderer := cluster.NewRenderer(list,
		cluster.NewGridPartitioner(cfg.ClusterRadius, cfg.ClusterDisableAtZoom),
		icons, cfg.MaxZoom)

	resolver := address.NewResolver(geocoder, cfg.GeocoderDebounce)
	orchestrator := creation.New(api, gate, list, resolver)
	popup := detail.New(list, sessions, api, api, gate)

	ws := websockets.NewWebSocketManager()
	list.Subscribe(ws.MarkersChanged)
	orchestrator.OnChange(func() { ws.Publish(websockets.Message{Type: websockets.MsgTypeDraftChanged}) })
	popup.OnChange(func() { ws.Publish(websockets.Message{Type: websockets.MsgTypeDetailChanged}) })
	sessions.OnClear(func() {
		// Own-place icons depend on the signed-in user.
		ws.Publish(websockets.Message{Type: websockets.MsgTypeSessionChanged})
		ws.MarkersChanged(list.Version())
	})

	return &Dependencies{
		DB:        database,
		PlacesAPI: api,
		Geocoder:  geocoder,
		Session:   sessions,
		Gate:      gate,
		Places:    list,
		Icons:     icons,
		Renderer:  renderer,
		Address:   resolver,
		Creation:  orchestrator,
		Detail:    popup,
		WebSocket: ws,
	}, nil
}

// Close releases the state store. The stream manager is stopped by the
// caller that runs it.
func (d *Dependencies) Close() error {
	d.Address.Cancel()
	return d.DB.Close()
}
