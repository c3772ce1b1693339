package address

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/forest_places/internal/http/nominatim"
)

type fakeGeocoder struct {
	mu    sync.Mutex
	calls [][2]float64
	ctxs  []context.Context
	name  string
	err   error
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (*nominatim.ReverseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]float64{lat, lon})
	f.ctxs = append(f.ctxs, ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &nominatim.ReverseResult{DisplayName: f.name}, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestResolverDebouncesToLastCoordinate(t *testing.T) {
	geo := &fakeGeocoder{name: "Пуща, Минский район, Минская область"}
	r := NewResolver(geo, 20*time.Millisecond)

	got := make(chan string, 2)
	r.Resolve(1, 1, func(a string) { got <- a })
	r.Resolve(2, 2, func(a string) { got <- a })
	r.Resolve(3, 3, func(a string) { got <- a })

	select {
	case a := <-got:
		if a != "Минская область, Минский район" {
			t.Errorf("address = %q", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no address applied")
	}
	waitFor(t, func() bool { return !r.Loading() })

	geo.mu.Lock()
	defer geo.mu.Unlock()
	if len(geo.calls) != 1 || geo.calls[0] != [2]float64{3, 3} {
		t.Fatalf("calls = %v, want only the last coordinate", geo.calls)
	}
}

func TestResolverSwallowsErrorsAndClearsLoading(t *testing.T) {
	geo := &fakeGeocoder{err: errors.New("503")}
	r := NewResolver(geo, time.Millisecond)

	applied := false
	r.Resolve(1, 1, func(string) { applied = true })
	if !r.Loading() {
		t.Fatal("resolver should be loading right after Resolve")
	}

	waitFor(t, func() bool { return geo.callCount() == 1 && !r.Loading() })
	if applied {
		t.Error("apply called for a failed lookup")
	}
}

func TestResolverCancel(t *testing.T) {
	geo := &fakeGeocoder{name: "x, y"}
	r := NewResolver(geo, 50*time.Millisecond)

	r.Resolve(1, 1, func(string) { t.Error("apply called after Cancel") })
	r.Cancel()

	if r.Loading() {
		t.Error("loading not cleared by Cancel")
	}
	time.Sleep(100 * time.Millisecond)
	if n := geo.callCount(); n != 0 {
		t.Errorf("geocoder called %d times after Cancel", n)
	}
}

func TestResolverReleasesLookupContext(t *testing.T) {
	geo := &fakeGeocoder{name: "Пуща, Минский район, Минская область"}
	r := NewResolver(geo, time.Millisecond)

	got := make(chan string, 1)
	r.Resolve(1, 1, func(a string) { got <- a })
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no address applied")
	}

	geo.mu.Lock()
	defer geo.mu.Unlock()
	if len(geo.ctxs) != 1 {
		t.Fatalf("lookups = %d", len(geo.ctxs))
	}
	if err := geo.ctxs[0].Err(); !errors.Is(err, context.Canceled) {
		t.Fatalf("lookup context err = %v, want it released after the lookup", err)
	}
}
