package cluster

import (
	"math"
	"reflect"
	"testing"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/internal/places"
	"github.com/bwise1/forest_places/util"
)

var belarus = Bounds{North: 60, South: 50, East: 30, West: 20}

func TestProjectRoundTrip(t *testing.T) {
	for _, z := range []int{0, 5, 12, 18} {
		p := Project(53.9, 27.56, z)
		lat, lon := Unproject(p, z)
		if math.Abs(lat-53.9) > 1e-9 || math.Abs(lon-27.56) > 1e-9 {
			t.Errorf("zoom %d: got %f,%f", z, lat, lon)
		}
	}
	if p := Project(0, 0, 0); p.X != 128 || math.Abs(p.Y-128) > 1e-9 {
		t.Errorf("origin = %+v, want 128,128", p)
	}
}

func TestPartitionGroupsByPixelRadius(t *testing.T) {
	g := NewGridPartitioner(80, 16)
	points := []Point{
		{ID: 1, Lat: 53.9, Lon: 27.50},
		{ID: 2, Lat: 53.9, Lon: 27.55},
		{ID: 3, Lat: 53.9, Lon: 28.50},
	}

	got := g.Partition(points, Viewport{Zoom: 10, Bounds: belarus})
	if len(got) != 2 {
		t.Fatalf("clusters = %+v, want 2", got)
	}
	if got[0].Count != 2 || !reflect.DeepEqual(got[0].MemberIDs, []int64{1, 2}) {
		t.Errorf("first cluster = %+v", got[0])
	}
	if !got[1].IsLeaf() || got[1].MemberIDs[0] != 3 {
		t.Errorf("second cluster = %+v", got[1])
	}
}

func TestNoClusteringFromThresholdZoom(t *testing.T) {
	g := NewGridPartitioner(80, 16)
	points := []Point{
		{ID: 1, Lat: 53.9, Lon: 27.5000},
		{ID: 2, Lat: 53.9, Lon: 27.5001},
	}

	if got := g.Partition(points, Viewport{Zoom: 15, Bounds: belarus}); len(got) != 1 || got[0].Count != 2 {
		t.Fatalf("zoom 15: %+v, want one cluster of 2", got)
	}
	for _, z := range []int{16, 17, 18} {
		got := g.Partition(points, Viewport{Zoom: z, Bounds: belarus})
		if len(got) != 2 || !got[0].IsLeaf() || !got[1].IsLeaf() {
			t.Fatalf("zoom %d: %+v, want two leaves", z, got)
		}
	}
}

func TestPartitionIsIdempotent(t *testing.T) {
	g := NewGridPartitioner(80, 16)
	points := make([]Point, 0, 200)
	for i := 0; i < 200; i++ {
		points = append(points, Point{
			ID:  int64(200 - i),
			Lat: 52 + float64(i%20)*0.07,
			Lon: 24 + float64(i/20)*0.09,
		})
	}
	vp := Viewport{Zoom: 9, Bounds: belarus}

	first := g.Partition(points, vp)
	second := g.Partition(points, vp)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same input produced a different partition")
	}

	shuffled := append([]Point(nil), points...)
	for i, j := 0, len(shuffled)-1; i < j; i, j = i+1, j-1 {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if !reflect.DeepEqual(first, g.Partition(shuffled, vp)) {
		t.Fatal("input order changed the partition")
	}
}

func TestPanDoesNotRegroup(t *testing.T) {
	g := NewGridPartitioner(80, 16)
	points := []Point{
		{ID: 1, Lat: 53.9, Lon: 27.50},
		{ID: 2, Lat: 53.9, Lon: 27.55},
	}
	a := g.Partition(points, Viewport{Zoom: 10, Bounds: Bounds{North: 54, South: 53.5, East: 28, West: 27}})
	b := g.Partition(points, Viewport{Zoom: 10, Bounds: Bounds{North: 54.2, South: 53.7, East: 28.3, West: 27.3}})
	if len(a) != 1 || !reflect.DeepEqual(a, b) {
		t.Fatalf("pan changed clusters: %+v vs %+v", a, b)
	}
}

func TestBadgeStep(t *testing.T) {
	tests := []struct {
		count int
		size  int
		color string
	}{
		{2, 40, "#22c55e"},
		{9, 40, "#22c55e"},
		{10, 50, "#eab308"},
		{99, 50, "#eab308"},
		{100, 60, "#ef4444"},
		{5000, 60, "#ef4444"},
	}
	for _, tt := range tests {
		size, color, _ := BadgeStep(tt.count)
		if size != tt.size || color != tt.color {
			t.Errorf("BadgeStep(%d) = %d %s, want %d %s", tt.count, size, color, tt.size, tt.color)
		}
	}

	icon := BadgeIcons{}.RenderCluster(42)
	if icon.Label != "42" || icon.AnchorX != 25 || icon.Kind != "cluster" {
		t.Errorf("cluster icon = %+v", icon)
	}
}

func TestLeafIconMarksOwnPlaces(t *testing.T) {
	icons := BadgeIcons{CurrentUser: func() (int64, bool) { return 5, true }}

	if icon := icons.RenderLeaf(Point{ID: 1, OwnerID: 5}); icon.Kind != "own" || icon.Color != "#f97316" {
		t.Errorf("own icon = %+v", icon)
	}
	if icon := icons.RenderLeaf(Point{ID: 2, OwnerID: 6}); icon.Kind != "place" || icon.Size != 40 || icon.AnchorY != 40 {
		t.Errorf("other icon = %+v", icon)
	}
	if icon := icons.RenderDraft(); !icon.Pulse || icon.Size != 50 {
		t.Errorf("draft icon = %+v", icon)
	}
}

func TestCoverageOutline(t *testing.T) {
	g := NewGridPartitioner(80, 16)
	points := []Point{
		{ID: 1, Lat: 53.90, Lon: 27.50},
		{ID: 2, Lat: 53.92, Lon: 27.52},
		{ID: 3, Lat: 53.90, Lon: 27.54},
		{ID: 4, Lat: 53.91, Lon: 27.52},
	}
	got := g.Partition(points, Viewport{Zoom: 10, Bounds: belarus})
	if len(got) != 1 || got[0].Coverage == "" {
		t.Fatalf("clusters = %+v", got)
	}

	coords, err := util.DecodePolyLines(got[0].Coverage)
	if err != nil {
		t.Fatalf("decode coverage: %v", err)
	}
	// triangle hull, closed: the interior point is not part of it
	if len(coords) != 4 {
		t.Fatalf("hull = %v, want 4 coordinates", coords)
	}
}

func TestSpiderfyLayouts(t *testing.T) {
	for _, n := range []int{3, 8, 9, 15} {
		members := make([]Point, n)
		for i := range members {
			members[i] = Point{ID: int64(i + 1), Lat: 53.9, Lon: 27.56}
		}
		c := group(18, members, pixelsAt(members, 18), seq(n))

		legs := Spiderfy(c, 18)
		if len(legs) != n {
			t.Fatalf("n=%d: %d legs", n, len(legs))
		}
		seen := map[[2]float64]bool{}
		for i, l := range legs {
			if l.PlaceID != int64(i+1) {
				t.Errorf("n=%d: leg %d is place %d", n, i, l.PlaceID)
			}
			key := [2]float64{l.Latitude, l.Longitude}
			if seen[key] {
				t.Errorf("n=%d: two legs at %v", n, key)
			}
			seen[key] = true
		}
	}
}

func TestCircleLegLength(t *testing.T) {
	center := Pixel{X: 1000, Y: 1000}
	want := 25.0 * 5 / (2 * math.Pi)
	for _, p := range circlePositions(3, center) {
		if d := math.Sqrt(p.dist2(center)); math.Abs(d-want) > 1 {
			t.Errorf("leg length %f, want about %f", d, want)
		}
	}
}

func TestRendererClusterClick(t *testing.T) {
	store := places.NewStore()
	store.Load([]model.Place{
		{ID: 1, Latitude: 53.9, Longitude: 27.50},
		{ID: 2, Latitude: 53.9, Longitude: 27.55},
		{ID: 3, Latitude: 52.0, Longitude: 23.7},
		{ID: 4, Latitude: 52.0, Longitude: 23.7},
	})
	r := NewRenderer(store, NewGridPartitioner(80, 16), BadgeIcons{}, 18)
	vp := Viewport{Zoom: 10, Bounds: belarus, Width: 800, Height: 600}

	markers, err := r.Markers(vp)
	if err != nil {
		t.Fatalf("Markers: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("markers = %+v", markers)
	}

	zoomRes, err := r.ClickCluster(markers[0].ID, vp)
	if err != nil {
		t.Fatalf("ClickCluster: %v", err)
	}
	if zoomRes.Action != ActionZoom || zoomRes.Zoom != 14 {
		t.Errorf("spread cluster click = %+v, want zoom to 14", zoomRes)
	}

	spider, err := r.ClickCluster(markers[1].ID, vp)
	if err != nil {
		t.Fatalf("ClickCluster: %v", err)
	}
	if spider.Action != ActionSpiderfy || len(spider.Legs) != 2 {
		t.Errorf("coincident cluster click = %+v, want spiderfy", spider)
	}

	if _, err := r.ClickCluster("c10-99-2", vp); err != ErrUnknownCluster {
		t.Errorf("err = %v, want ErrUnknownCluster", err)
	}
}

func TestRendererSeesListChanges(t *testing.T) {
	store := places.NewStore()
	store.Load([]model.Place{{ID: 1, Latitude: 53.9, Longitude: 27.5}})
	r := NewRenderer(store, NewGridPartitioner(80, 16), BadgeIcons{}, 18)
	vp := Viewport{Zoom: 10, Bounds: belarus}

	before, _ := r.Markers(vp)
	store.Append(model.Place{ID: 2, Latitude: 53.9, Longitude: 27.51})
	after, _ := r.Markers(vp)

	if len(before) != 1 || before[0].Count != 1 {
		t.Fatalf("before = %+v", before)
	}
	if len(after) != 1 || after[0].Count != 2 {
		t.Fatalf("after = %+v, want a cluster of 2", after)
	}
}

func TestRendererRejectsBadZoom(t *testing.T) {
	r := NewRenderer(places.NewStore(), NewGridPartitioner(80, 16), BadgeIcons{}, 18)
	if _, err := r.Markers(Viewport{Zoom: 19, Bounds: belarus}); err != ErrInvalidZoom {
		t.Fatalf("err = %v, want ErrInvalidZoom", err)
	}
}

func pixelsAt(points []Point, zoom int) []Pixel {
	out := make([]Pixel, len(points))
	for i, p := range points {
		out[i] = Project(p.Lat, p.Lon, zoom)
	}
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
