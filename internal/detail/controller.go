// Package detail tracks the single open place and serves its popup: the
// view, the lazily fetched photo gallery and the owner-only photo upload.
package detail

import (
	"context"
	"strings"
	"sync"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNothingOpen  = errors.New("no place is open")
	ErrUnknownPlace = errors.New("place is not in the list")
)

type Places interface {
	Get(id int64) (model.Place, bool)
	AppendImage(placeID int64, img model.PlaceImage) error
}

type Sessions interface {
	Current() (model.Session, bool)
}

type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

type Gate interface {
	CheckMutation(ctx context.Context, err error) error
}

// View is what the popup shows for the open place.
type View struct {
	Place      model.Place       `json:"place"`
	IsOwner    bool              `json:"isOwner"`
	Upload     *UploadAffordance `json:"upload,omitempty"`
	MorePhotos int               `json:"morePhotos"`
	Expanded   bool              `json:"expanded"`
}

type Controller struct {
	places   Places
	sessions Sessions
	fetcher  ImageFetcher
	uploader Uploader
	gate     Gate

	mu        sync.Mutex
	open      bool
	placeID   int64
	expanded  bool
	uploading bool
	thumbs    *thumbCache
	onChange  []func()
}

func New(places Places, sessions Sessions, fetcher ImageFetcher, uploader Uploader, gate Gate) *Controller {
	return &Controller{
		places:   places,
		sessions: sessions,
		fetcher:  fetcher,
		uploader: uploader,
		gate:     gate,
		thumbs:   newThumbCache(),
	}
}

// OnChange registers fn to run after every open or close transition and
// after photos are added to the open place.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Open selects the place. Selecting the already open place is a no-op and
// reports opened=false. The place is read from the list; nothing is
// fetched.
func (c *Controller) Open(placeID int64) (view View, opened bool, err error) {
	p, ok := c.places.Get(placeID)
	if !ok {
		return View{}, false, ErrUnknownPlace
	}

	c.mu.Lock()
	if c.open && c.placeID == placeID {
		view = c.viewLocked(p)
		c.mu.Unlock()
		return view, false, nil
	}
	if c.placeID != placeID {
		c.thumbs.reset()
	}
	c.open = true
	c.placeID = placeID
	c.expanded = false
	view = c.viewLocked(p)
	c.mu.Unlock()

	log.Debug().Int64("place", placeID).Msg("detail opened")
	c.changed()
	return view, true, nil
}

// Current returns the view of the open place.
func (c *Controller) Current() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return View{}, false
	}
	p, ok := c.places.Get(c.placeID)
	if !ok {
		return View{}, false
	}
	return c.viewLocked(p), true
}

// Close returns to no selection. It reports whether a place was open.
func (c *Controller) Close() bool {
	c.mu.Lock()
	was := c.open
	c.open = false
	c.expanded = false
	c.mu.Unlock()

	if was {
		log.Debug().Msg("detail closed")
		c.changed()
	}
	return was
}

// HandleKey closes the popup on Escape. Other keys are ignored.
func (c *Controller) HandleKey(key string) bool {
	switch strings.ToLower(key) {
	case "escape", "esc":
		return c.Close()
	}
	return false
}

// Backdrop handles an interaction outside the popup.
func (c *Controller) Backdrop() bool {
	return c.Close()
}

// ShowMore reveals the photos after the first one.
func (c *Controller) ShowMore() (View, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return View{}, ErrNothingOpen
	}
	p, ok := c.places.Get(c.placeID)
	if !ok {
		c.mu.Unlock()
		return View{}, ErrUnknownPlace
	}
	c.expanded = true
	view := c.viewLocked(p)
	c.mu.Unlock()
	return view, nil
}

func (c *Controller) viewLocked(p model.Place) View {
	v := View{Place: p, Expanded: c.expanded}
	v.IsOwner = c.isOwner(p)
	if v.IsOwner {
		v.Upload = newAffordance(p.ID)
	}
	if n := len(photos(p)); n > 1 && !c.expanded {
		v.MorePhotos = n - 1
	}
	return v
}

func (c *Controller) isOwner(p model.Place) bool {
	sess, ok := c.sessions.Current()
	return ok && sess.UserID != 0 && !p.IsDraft() && sess.UserID == p.OwnerID
}

func (c *Controller) changed() {
	c.mu.Lock()
	fns := append([]func(){}, c.onChange...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// photos lists the place's images, falling back to the legacy single image
// URL some responses still carry.
func photos(p model.Place) []model.PlaceImage {
	if len(p.Images) > 0 {
		return p.Images
	}
	if p.ImageURL != "" {
		return []model.PlaceImage{{URL: p.ImageURL}}
	}
	return nil
}
