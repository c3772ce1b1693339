package cluster

import (
	"sort"

	"github.com/bwise1/forest_places/util"
)

// coverage returns the convex hull of the points as an encoded polyline, or
// "" when the points do not span an area.
func coverage(points []Point) string {
	hull := convexHull(points)
	if len(hull) < 3 {
		return ""
	}
	coords := make([]util.Coordinate, 0, len(hull)+1)
	for _, p := range hull {
		coords = append(coords, util.Coordinate{Lat: p.Lat, Lon: p.Lon})
	}
	coords = append(coords, coords[0])
	return util.EncodePolyline(coords)
}

// convexHull uses the monotone chain algorithm with lon as x and lat as y.
func convexHull(points []Point) []Point {
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lon != pts[j].Lon {
			return pts[i].Lon < pts[j].Lon
		}
		return pts[i].Lat < pts[j].Lat
	})
	uniq := make([]Point, 0, len(pts))
	for _, p := range pts {
		if n := len(uniq); n > 0 && p.Lat == uniq[n-1].Lat && p.Lon == uniq[n-1].Lon {
			continue
		}
		uniq = append(uniq, p)
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b Point) float64 {
		return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
