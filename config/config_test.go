package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Port)
	}
	if cfg.ClusterRadius != 80 {
		t.Errorf("ClusterRadius = %v, want 80", cfg.ClusterRadius)
	}
	if cfg.ClusterDisableAtZoom != 16 {
		t.Errorf("ClusterDisableAtZoom = %d, want 16", cfg.ClusterDisableAtZoom)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://places.test")
	t.Setenv("GEOCODER_DEBOUNCE", "1s")
	t.Setenv("CLUSTER_RADIUS", "60")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000,https://forest.example")

	cfg := New()

	if cfg.APIBaseURL != "http://places.test" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.GeocoderDebounce != time.Second {
		t.Errorf("GeocoderDebounce = %v", cfg.GeocoderDebounce)
	}
	if cfg.ClusterRadius != 60 {
		t.Errorf("ClusterRadius = %v", cfg.ClusterRadius)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://forest.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}
