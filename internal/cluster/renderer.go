package cluster

import (
	"sync"
	"time"

	"github.com/bwise1/forest_places/internal/metrics"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/pkg/errors"
)

var (
	ErrUnknownCluster = errors.New("cluster is not on the map")
	ErrInvalidZoom    = errors.New("zoom level out of range")
)

// Source is the place list the renderer reads.
type Source interface {
	Version() uint64
	Snapshot() ([]model.Place, uint64)
}

// Marker is one entry of the marker set: a cluster plus its icon.
type Marker struct {
	Cluster
	Icon Icon `json:"icon"`
}

const (
	ActionZoom     = "zoom"
	ActionSpiderfy = "spiderfy"
)

// ClickResult tells the surface what to do after a cluster click.
type ClickResult struct {
	Action string `json:"action"`
	Zoom   int    `json:"zoom"`
	Bounds Bounds `json:"bounds"`
	Legs   []Leg  `json:"legs,omitempty"`
}

type zoomEntry struct {
	version  uint64
	clusters []Cluster
}

// Renderer turns the place list into marker sets. The per-zoom partition is
// cached until the list version changes.
type Renderer struct {
	source     Source
	partitions GridPartitioner
	icons      IconFactory
	maxZoom    int

	mu    sync.Mutex
	zooms map[int]zoomEntry
}

func NewRenderer(source Source, p GridPartitioner, icons IconFactory, maxZoom int) *Renderer {
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	return &Renderer{
		source:     source,
		partitions: p,
		icons:      icons,
		maxZoom:    maxZoom,
		zooms:      make(map[int]zoomEntry),
	}
}

func (r *Renderer) MaxZoom() int {
	return r.maxZoom
}

// Markers returns the marker set for the viewport.
func (r *Renderer) Markers(vp Viewport) ([]Marker, error) {
	if vp.Zoom < 0 || vp.Zoom > r.maxZoom {
		return nil, ErrInvalidZoom
	}
	visible := InViewport(r.clusters(vp.Zoom), vp)

	out := make([]Marker, len(visible))
	for i, c := range visible {
		var icon Icon
		if c.IsLeaf() {
			icon = r.icons.RenderLeaf(c.members[0])
		} else {
			icon = r.icons.RenderCluster(c.Count)
		}
		out[i] = Marker{Cluster: c, Icon: icon}
	}
	return out, nil
}

// ClickCluster zooms to fit the cluster when that would split it, and
// spiderfies it at max zoom or when its members share one position.
func (r *Renderer) ClickCluster(id string, vp Viewport) (*ClickResult, error) {
	if vp.Zoom < 0 || vp.Zoom > r.maxZoom {
		return nil, ErrInvalidZoom
	}
	var target *Cluster
	for _, c := range r.clusters(vp.Zoom) {
		if c.ID == id {
			c := c
			target = &c
			break
		}
	}
	if target == nil || target.IsLeaf() {
		return nil, ErrUnknownCluster
	}

	if !target.Bounds.Degenerate() && vp.Zoom < r.maxZoom {
		fit := FitZoom(target.Bounds, vp.Width, vp.Height, r.maxZoom)
		if fit <= vp.Zoom {
			fit = vp.Zoom + 1
		}
		return &ClickResult{Action: ActionZoom, Zoom: fit, Bounds: target.Bounds}, nil
	}

	return &ClickResult{
		Action: ActionSpiderfy,
		Zoom:   vp.Zoom,
		Bounds: target.Bounds,
		Legs:   Spiderfy(*target, vp.Zoom),
	}, nil
}

func (r *Renderer) clusters(zoom int) []Cluster {
	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.zooms[zoom]; ok && e.version == r.source.Version() {
		metrics.RecordPartition(time.Since(start), true)
		return e.clusters
	}
	list, version := r.source.Snapshot()
	for z, e := range r.zooms {
		if e.version != version {
			delete(r.zooms, z)
		}
	}
	clusters := r.partitions.ClusterAll(PointsFrom(list), zoom)
	r.zooms[zoom] = zoomEntry{version: version, clusters: clusters}
	metrics.RecordPartition(time.Since(start), false)
	return clusters
}
