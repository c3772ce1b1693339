package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           int      `env:"PORT" envDefault:"8090"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Remote persistence service.
	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// Reverse geocoding.
	GeocoderBaseURL   string        `env:"GEOCODER_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderLanguage  string        `env:"GEOCODER_LANGUAGE" envDefault:"ru"`
	GeocoderUserAgent string        `env:"GEOCODER_USER_AGENT" envDefault:"forest-places/1.0"`
	GeocoderDebounce  time.Duration `env:"GEOCODER_DEBOUNCE" envDefault:"300ms"`
	GeocoderRPS       float64       `env:"GEOCODER_RPS" envDefault:"1"`

	// Persisted client state (session entry).
	StateDir string `env:"STATE_DIR" envDefault:".forest_places"`

	// Clustering.
	ClusterRadius        float64 `env:"CLUSTER_RADIUS" envDefault:"80"`
	ClusterDisableAtZoom int     `env:"CLUSTER_DISABLE_AT_ZOOM" envDefault:"16"`
	MaxZoom              int     `env:"MAX_ZOOM" envDefault:"18"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Warn().Err(loadErr).Msg("[Env]: unable to load .env file")
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Error().Err(parseErr).Msg("[Env]: failed to parse environment variables")
	}

	return &cfg
}
