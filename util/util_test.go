package util

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwise1/forest_places/util/values"
)

func TestPolyLineRoundTrip(t *testing.T) {
	coords := []Coordinate{
		{Lat: 53.9, Lon: 27.56},
		{Lat: 53.95, Lon: 27.6},
		{Lat: 54.01, Lon: 27.49},
	}
	encoded := EncodePolyline(coords)
	if encoded == "" {
		t.Fatal("expected non-empty polyline")
	}

	decoded, err := DecodePolyLines(encoded)
	if err != nil {
		t.Fatalf("Decoding returned error %v", err)
	}
	if len(decoded) != len(coords) {
		t.Fatalf("decoded %d points, want %d", len(decoded), len(coords))
	}
	for i, c := range coords {
		if math.Abs(decoded[i][0]-c.Lat) > 1e-5 || math.Abs(decoded[i][1]-c.Lon) > 1e-5 {
			t.Errorf("point %d = %v, want %v", i, decoded[i], c)
		}
	}
}

func TestNotBlank(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"\t\n", false},
		{"Oak Grove", true},
		{"  x ", true},
	}
	for _, tc := range testCases {
		if got := NotBlank(tc.in); got != tc.want {
			t.Errorf("NotBlank(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidateStructCoordinates(t *testing.T) {
	type point struct {
		Title string  `validate:"notblank"`
		Lat   float64 `validate:"latitude"`
		Lon   float64 `validate:"longitude"`
	}

	if err := ValidateStruct(point{Title: "ok", Lat: 53.9, Lon: 27.56}); err != nil {
		t.Fatalf("valid point rejected: %v", err)
	}

	err := ValidateStruct(point{Title: "  ", Lat: 91, Lon: -181})
	if err == nil {
		t.Fatal("expected validation error")
	}
	fields := FieldErrors(err)
	for _, f := range []string{"Title", "Lat", "Lon"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %s in %v", f, fields)
		}
	}
}

func TestStatusCode(t *testing.T) {
	testCases := map[string]int{
		values.Success:        http.StatusOK,
		values.Created:        http.StatusCreated,
		values.BadRequestBody: http.StatusBadRequest,
		values.NotAuthorised:  http.StatusUnauthorized,
		values.NotFound:       http.StatusNotFound,
		values.SystemErr:      http.StatusInternalServerError,
		values.Upstream:       http.StatusBadGateway,
	}
	for status, want := range testCases {
		if got := StatusCode(status); got != want {
			t.Errorf("StatusCode(%q) = %d; want %d", status, got, want)
		}
	}
}

func TestParseFloatParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/map/markers?zoom=7.5&bad=x", nil)

	v, err := ParseFloatParam(r, "zoom", 0)
	if err != nil || v != 7.5 {
		t.Fatalf("zoom = %v, %v", v, err)
	}
	v, err = ParseFloatParam(r, "missing", 3)
	if err != nil || v != 3 {
		t.Fatalf("missing = %v, %v", v, err)
	}
	if _, err := ParseFloatParam(r, "bad", 0); err == nil {
		t.Fatal("expected error for bad parameter")
	}
}
