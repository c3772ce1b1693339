package detail

import (
	"context"
	"encoding/base64"
	"math"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/rs/zerolog/log"
)

// Popup gallery layout in CSS pixels: the first photo as a hero image,
// then the remaining photos in a grid revealed by ShowMore.
const (
	HeroHeight = 128
	Columns    = 2
	RowHeight  = 84
	Overscan   = 1
)

type Thumbnail struct {
	Index       int    `json:"index"`
	ImageID     int64  `json:"imageId,omitempty"`
	URL         string `json:"url"`
	Loaded      bool   `json:"loaded"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size,omitempty"`
	Preview     string `json:"preview,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Window is the part of the gallery near the scroll viewport. Thumbnails
// holds the grid photos of rows FirstRow..LastRow; it is empty until the
// gallery is expanded.
type Window struct {
	PlaceID    int64       `json:"placeId"`
	Offset     int         `json:"offset"`
	Height     int         `json:"height"`
	Expanded   bool        `json:"expanded"`
	MorePhotos int         `json:"morePhotos"`
	FirstRow   int         `json:"firstRow"`
	LastRow    int         `json:"lastRow"`
	Hero       *Thumbnail  `json:"hero,omitempty"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Fetched    int         `json:"fetched"`
}

type thumb struct {
	data        []byte
	contentType string
}

// thumbCache holds fetched photos per URL for the open place. It is guarded
// by the controller's mutex.
type thumbCache struct {
	gen      uint64
	entries  map[string]thumb
	failed   map[string]string
	inflight map[string]bool
}

func newThumbCache() *thumbCache {
	c := &thumbCache{}
	c.reset()
	return c
}

func (c *thumbCache) reset() {
	c.gen++
	c.entries = make(map[string]thumb)
	c.failed = make(map[string]string)
	c.inflight = make(map[string]bool)
}

// visibleRows returns the grid rows intersecting [offset, offset+height)
// widened by Overscan rows and clamped to the grid.
func visibleRows(offset, height, rows int) (first, last int) {
	if rows == 0 {
		return 0, -1
	}
	if height < 1 {
		height = 1
	}
	top := float64(offset - HeroHeight)
	bottom := float64(offset + height - 1 - HeroHeight)
	first = int(math.Floor(top/RowHeight)) - Overscan
	last = int(math.Floor(bottom/RowHeight)) + Overscan
	if first < 0 {
		first = 0
	}
	if first > rows-1 {
		first = rows - 1
	}
	if last > rows-1 {
		last = rows - 1
	}
	if last < first {
		return first, first - 1
	}
	return first, last
}

// Photos returns the gallery window for a scroll offset and viewport
// height. The hero photo and the grid photos inside the window are fetched
// once; later calls are served from the cache.
func (c *Controller) Photos(ctx context.Context, offset, height int) (*Window, error) {
	if offset < 0 {
		offset = 0
	}

	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, ErrNothingOpen
	}
	p, ok := c.places.Get(c.placeID)
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownPlace
	}
	all := photos(p)
	w := &Window{PlaceID: p.ID, Offset: offset, Height: height, Expanded: c.expanded, Thumbnails: []Thumbnail{}}

	var want []int
	if len(all) > 0 {
		want = append(want, 0)
	}
	rest := len(all) - 1
	if rest < 0 {
		rest = 0
	}
	if c.expanded {
		rows := (rest + Columns - 1) / Columns
		w.FirstRow, w.LastRow = visibleRows(offset, height, rows)
		for i := w.FirstRow * Columns; i < (w.LastRow+1)*Columns && i < rest; i++ {
			want = append(want, i+1)
		}
	} else {
		w.MorePhotos = rest
		w.FirstRow, w.LastRow = 0, -1
	}

	var fetch []string
	for _, i := range want {
		u := all[i].URL
		if u == "" {
			continue
		}
		if _, done := c.thumbs.entries[u]; done || c.thumbs.inflight[u] {
			continue
		}
		c.thumbs.inflight[u] = true
		fetch = append(fetch, u)
	}
	gen := c.thumbs.gen
	c.mu.Unlock()

	for _, u := range fetch {
		data, ct, err := c.fetcher.FetchImage(ctx, u)
		c.mu.Lock()
		if gen == c.thumbs.gen {
			delete(c.thumbs.inflight, u)
			if err != nil {
				c.thumbs.failed[u] = err.Error()
			} else {
				delete(c.thumbs.failed, u)
				c.thumbs.entries[u] = thumb{data: data, contentType: ct}
			}
		}
		c.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("url", u).Msg("fetch thumbnail")
			continue
		}
		w.Fetched++
	}

	c.mu.Lock()
	for _, i := range want {
		t := c.thumbnailLocked(i, all[i])
		if i == 0 {
			w.Hero = &t
			continue
		}
		w.Thumbnails = append(w.Thumbnails, t)
	}
	c.mu.Unlock()
	return w, nil
}

func (c *Controller) thumbnailLocked(i int, img model.PlaceImage) Thumbnail {
	t := Thumbnail{Index: i, ImageID: img.ID, URL: img.URL}
	if e, ok := c.thumbs.entries[img.URL]; ok {
		t.Loaded = true
		t.ContentType = e.contentType
		t.Size = len(e.data)
		t.Preview = "data:" + e.contentType + ";base64," + base64.StdEncoding.EncodeToString(e.data)
	} else if msg, ok := c.thumbs.failed[img.URL]; ok {
		t.Error = msg
	}
	return t
}
