package util

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-polyline"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Coordinate represents a latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// EncodePolyline encodes coordinates with the Google polyline algorithm
// (precision 1e5).
func EncodePolyline(coords []Coordinate) string {
	flat := make([][]float64, len(coords))
	for i, c := range coords {
		flat[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(flat))
}

func DecodePolyLines(shape string) ([][]float64, error) {
	decoded, _, err := polyline.DecodeCoords([]byte(shape))
	if err != nil {
		log.Error().Err(err).Msg("error decoding polyline")
		return nil, fmt.Errorf("failed to decode polyline %w", err)
	}
	return decoded, nil
}
