package address

import (
	"context"
	"sync"
	"time"

	"github.com/bwise1/forest_places/internal/http/nominatim"
	"github.com/rs/zerolog/log"
)

// ReverseGeocoder is the lookup the resolver depends on.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*nominatim.ReverseResult, error)
}

// Resolver debounces reverse-geocode lookups so that only the last
// coordinate within the debounce window reaches the geocoder. Lookup errors
// are logged and swallowed.
type Resolver struct {
	geocoder ReverseGeocoder
	debounce time.Duration

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	loading bool
}

func NewResolver(geocoder ReverseGeocoder, debounce time.Duration) *Resolver {
	return &Resolver{geocoder: geocoder, debounce: debounce}
}

// Resolve schedules a lookup for the coordinate. A later call supersedes any
// pending or in-flight lookup. apply receives the normalized address and is
// only called on success of the latest lookup.
func (r *Resolver) Resolve(lat, lon float64, apply func(address string)) {
	if r == nil || r.geocoder == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.seq++
	seq := r.seq
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.loading = true
	r.timer = time.AfterFunc(r.debounce, func() {
		r.lookup(ctx, seq, lat, lon, apply)
	})
}

// Cancel drops any pending or in-flight lookup and clears the loading state.
func (r *Resolver) Cancel() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.seq++
	r.loading = false
}

// Loading reports whether a lookup is pending or in flight.
func (r *Resolver) Loading() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

func (r *Resolver) lookup(ctx context.Context, seq uint64, lat, lon float64, apply func(string)) {
	res, err := r.geocoder.Reverse(ctx, lat, lon)

	r.mu.Lock()
	current := seq == r.seq
	if current {
		r.loading = false
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.timer = nil
	}
	r.mu.Unlock()

	if err != nil {
		log.Debug().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("reverse geocode failed")
		return
	}
	if !current {
		return
	}
	if addr := Normalize(res.DisplayName); addr != "" && apply != nil {
		apply(addr)
	}
}

func (r *Resolver) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
