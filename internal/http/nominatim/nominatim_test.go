package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, Language: "ru", RPS: 1000, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestReverseQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("lat") != "53.9" || q.Get("lon") != "27.56" || q.Get("format") != "json" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if q.Get("accept-language") != "ru" {
			t.Errorf("accept-language = %q", q.Get("accept-language"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Write([]byte(`{"place_id":1,"display_name":"Минск, Минская область, Беларусь"}`))
	})

	res, err := c.Reverse(context.Background(), 53.9, 27.56)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if res.DisplayName != "Минск, Минская область, Беларусь" {
		t.Errorf("display_name = %q", res.DisplayName)
	}
}

func TestReverseNoResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	})

	_, err := c.Reverse(context.Background(), 0, 0)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		if _, err := c.Reverse(context.Background(), 1, 1); err == nil {
			t.Fatal("expected failure")
		}
	}
	_, err := c.Reverse(context.Background(), 1, 1)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open breaker", err)
	}
	if got := atomic.LoadInt32(&hits); got != 5 {
		t.Errorf("server hits = %d, want 5", got)
	}
}

func TestReverseHonoursCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name":"x"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Reverse(ctx, 1, 1); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
