// Package cluster groups place markers by on-screen proximity and builds
// the marker set handed to the map surface.
package cluster

import (
	"fmt"
	"sort"

	"github.com/bwise1/forest_places/internal/model"
)

const (
	DefaultRadius        = 80
	DefaultDisableAtZoom = 16
	DefaultMaxZoom       = 18
)

// Point is one persisted place as seen by the partitioner.
type Point struct {
	ID      int64   `json:"id"`
	Lat     float64 `json:"latitude"`
	Lon     float64 `json:"longitude"`
	OwnerID int64   `json:"ownerId"`
}

// PointsFrom converts places to points. Drafts are skipped.
func PointsFrom(list []model.Place) []Point {
	out := make([]Point, 0, len(list))
	for _, p := range list {
		if p.IsDraft() {
			continue
		}
		out = append(out, Point{ID: p.ID, Lat: p.Latitude, Lon: p.Longitude, OwnerID: p.OwnerID})
	}
	return out
}

// Cluster is either a single place (Count == 1) or a group of places within
// the cluster radius of the seed place.
type Cluster struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int     `json:"count"`
	MemberIDs []int64 `json:"memberIds"`
	Bounds    Bounds  `json:"bounds"`
	Coverage  string  `json:"coverage,omitempty"`

	members []Point
}

func (c Cluster) IsLeaf() bool {
	return c.Count == 1
}

// Members returns the points of the cluster in id order.
func (c Cluster) Members() []Point {
	return append([]Point(nil), c.members...)
}

type Partitioner interface {
	Partition(points []Point, vp Viewport) []Cluster
}

// GridPartitioner clusters greedily in pixel space. Points are visited in id
// order; each unassigned point seeds a cluster that takes every unassigned
// point within Radius pixels of it. The result for a zoom level depends only
// on the point set, so panning never regroups markers.
type GridPartitioner struct {
	Radius        float64
	DisableAtZoom int
}

func NewGridPartitioner(radius float64, disableAtZoom int) GridPartitioner {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if disableAtZoom <= 0 {
		disableAtZoom = DefaultDisableAtZoom
	}
	return GridPartitioner{Radius: radius, DisableAtZoom: disableAtZoom}
}

func (g GridPartitioner) Partition(points []Point, vp Viewport) []Cluster {
	return InViewport(g.ClusterAll(points, vp.Zoom), vp)
}

// ClusterAll partitions every point at zoom, ignoring the viewport.
func (g GridPartitioner) ClusterAll(points []Point, zoom int) []Cluster {
	sorted := append([]Point(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if zoom >= g.DisableAtZoom || g.Radius <= 0 {
		out := make([]Cluster, len(sorted))
		for i, p := range sorted {
			out[i] = leaf(p)
		}
		return out
	}

	pixels := make([]Pixel, len(sorted))
	for i, p := range sorted {
		pixels[i] = Project(p.Lat, p.Lon, zoom)
	}
	idx := newGrid(g.Radius, pixels)
	assigned := make([]bool, len(sorted))

	var out []Cluster
	for i := range sorted {
		if assigned[i] {
			continue
		}
		var members []int
		for _, j := range idx.nearby(pixels[i], g.Radius) {
			if !assigned[j] {
				assigned[j] = true
				members = append(members, j)
			}
		}
		if len(members) == 1 {
			out = append(out, leaf(sorted[i]))
			continue
		}
		out = append(out, group(zoom, sorted, pixels, members))
	}
	return out
}

// InViewport keeps the clusters whose position lies inside the viewport.
func InViewport(clusters []Cluster, vp Viewport) []Cluster {
	out := make([]Cluster, 0, len(clusters))
	for _, c := range clusters {
		if vp.Bounds.Contains(c.Latitude, c.Longitude) {
			out = append(out, c)
		}
	}
	return out
}

func leaf(p Point) Cluster {
	return Cluster{
		ID:        fmt.Sprintf("p%d", p.ID),
		Latitude:  p.Lat,
		Longitude: p.Lon,
		Count:     1,
		MemberIDs: []int64{p.ID},
		Bounds:    pointBounds(p.Lat, p.Lon),
		members:   []Point{p},
	}
}

func group(zoom int, points []Point, pixels []Pixel, idx []int) Cluster {
	seed := points[idx[0]]
	c := Cluster{
		ID:        fmt.Sprintf("c%d-%d-%d", zoom, seed.ID, len(idx)),
		Count:     len(idx),
		MemberIDs: make([]int64, 0, len(idx)),
		Bounds:    pointBounds(seed.Lat, seed.Lon),
		members:   make([]Point, 0, len(idx)),
	}

	var sx, sy float64
	for _, i := range idx {
		p := points[i]
		c.MemberIDs = append(c.MemberIDs, p.ID)
		c.members = append(c.members, p)
		c.Bounds = c.Bounds.extend(p.Lat, p.Lon)
		sx += pixels[i].X
		sy += pixels[i].Y
	}
	n := float64(len(idx))
	c.Latitude, c.Longitude = Unproject(Pixel{X: sx / n, Y: sy / n}, zoom)
	c.Coverage = coverage(c.members)
	return c
}
