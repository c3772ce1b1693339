package cluster

import "math"

const (
	TileSize    = 256
	maxLatitude = 85.05112878
)

// Pixel is a position in Web Mercator pixel space at some zoom level.
type Pixel struct {
	X, Y float64
}

func worldSize(zoom int) float64 {
	return TileSize * math.Exp2(float64(zoom))
}

// Project converts a coordinate to pixel space at zoom.
func Project(lat, lon float64, zoom int) Pixel {
	lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
	s := worldSize(zoom)
	sin := math.Sin(lat * math.Pi / 180)
	return Pixel{
		X: (lon + 180) / 360 * s,
		Y: (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * s,
	}
}

// Unproject converts a pixel at zoom back to a coordinate.
func Unproject(p Pixel, zoom int) (lat, lon float64) {
	s := worldSize(zoom)
	lon = p.X/s*360 - 180
	n := math.Pi - 2*math.Pi*p.Y/s
	lat = 180 / math.Pi * math.Atan(math.Sinh(n))
	return lat, lon
}

func (p Pixel) dist2(o Pixel) float64 {
	dx, dy := p.X-o.X, p.Y-o.Y
	return dx*dx + dy*dy
}

// Bounds is a geographic bounding box. West > East means the box crosses
// the antimeridian.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func pointBounds(lat, lon float64) Bounds {
	return Bounds{North: lat, South: lat, East: lon, West: lon}
}

func (b Bounds) extend(lat, lon float64) Bounds {
	b.North = math.Max(b.North, lat)
	b.South = math.Min(b.South, lat)
	b.East = math.Max(b.East, lon)
	b.West = math.Min(b.West, lon)
	return b
}

func (b Bounds) Contains(lat, lon float64) bool {
	if lat > b.North || lat < b.South {
		return false
	}
	if b.West <= b.East {
		return lon >= b.West && lon <= b.East
	}
	return lon >= b.West || lon <= b.East
}

// Degenerate reports a box collapsed to a single coordinate.
func (b Bounds) Degenerate() bool {
	return b.North == b.South && b.East == b.West
}

// Viewport is the visible part of the map as reported by the rendering
// surface.
type Viewport struct {
	Zoom   int
	Bounds Bounds
	Width  int
	Height int
}

// FitZoom returns the largest zoom not above maxZoom at which b fits in a
// width x height pixel box.
func FitZoom(b Bounds, width, height, maxZoom int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	for z := maxZoom; z > 0; z-- {
		nw := Project(b.North, b.West, z)
		se := Project(b.South, b.East, z)
		if math.Abs(se.X-nw.X) <= float64(width) && math.Abs(se.Y-nw.Y) <= float64(height) {
			return z
		}
	}
	return 0
}
