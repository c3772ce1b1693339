// Package creation runs the place creation workflow: a draft opened on the
// map, local validation, a single create call and a sequential upload of
// the staged photos.
package creation

import (
	"context"
	"strings"
	"sync"

	"github.com/bwise1/forest_places/internal/metrics"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/internal/session"
	"github.com/bwise1/forest_places/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State string

const (
	Idle            State = "idle"
	DraftOpen       State = "draft_open"
	Submitting      State = "submitting"
	Succeeded       State = "succeeded"
	PartiallyFailed State = "partially_failed"
	Failed          State = "failed"
	Cancelled       State = "cancelled"
)

type PlaceCreator interface {
	CreatePlace(ctx context.Context, req model.CreatePlaceRequest) (*model.Place, error)
	Uploader
}

type Gate interface {
	RequireSession() (model.Session, error)
	CheckMutation(ctx context.Context, err error) error
}

// PlaceList is the part of the place list the workflow writes to.
type PlaceList interface {
	Append(p model.Place) error
	AppendImage(placeID int64, img model.PlaceImage) error
}

type AddressResolver interface {
	Resolve(lat, lon float64, apply func(address string))
	Cancel()
	Loading() bool
}

// Draft is the client-only place being created.
type Draft struct {
	ID             uuid.UUID             `json:"id"`
	Latitude       float64               `json:"latitude"`
	Longitude      float64               `json:"longitude"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Address        string                `json:"address"`
	AddressEdited  bool                  `json:"addressEdited"`
	AddressLoading bool                  `json:"addressLoading"`
	ExistingTagIDs []int64               `json:"existingTagIds"`
	NewTags        []model.NewTag        `json:"newTags"`
	Files          []model.PendingUpload `json:"files"`
}

func (d *Draft) clone() Draft {
	c := *d
	c.ExistingTagIDs = append([]int64{}, d.ExistingTagIDs...)
	c.NewTags = append([]model.NewTag{}, d.NewTags...)
	c.Files = append([]model.PendingUpload{}, d.Files...)
	return c
}

type position struct {
	Latitude  float64 `validate:"latitude"`
	Longitude float64 `validate:"longitude"`
}

// Fields is a partial update of the draft form. Nil fields are unchanged.
type Fields struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Address        *string  `json:"address"`
	ExistingTagIDs *[]int64 `json:"existingTagIds"`
}

// Outcome is the terminal report of one submission.
type Outcome struct {
	State   State        `json:"state"`
	Place   *model.Place `json:"place,omitempty"`
	Uploads *Batch       `json:"uploads,omitempty"`
	Message string       `json:"message"`
	Error   string       `json:"error,omitempty"`
	// Reauthenticate is set when the remote service rejected the session
	// during the submission and it was cleared.
	Reauthenticate bool `json:"reauthenticate,omitempty"`

	err error
}

func (o *Outcome) Err() error {
	return o.err
}

type Orchestrator struct {
	api     PlaceCreator
	gate    Gate
	places  PlaceList
	address AddressResolver

	mu       sync.Mutex
	state    State
	draft    *Draft
	gen      uint64
	last     *Outcome
	onChange []func()
}

func New(api PlaceCreator, gate Gate, list PlaceList, address AddressResolver) *Orchestrator {
	return &Orchestrator{api: api, gate: gate, places: list, address: address, state: Idle}
}

// OnChange registers fn to run after every draft or state change.
func (o *Orchestrator) OnChange(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = append(o.onChange, fn)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastOutcome returns the report of the most recent submission.
func (o *Orchestrator) LastOutcome() (*Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last, o.last != nil
}

// Open starts a draft at the coordinate. It requires a session; an open
// draft is replaced.
func (o *Orchestrator) Open(lat, lon float64) (Draft, error) {
	if _, err := o.gate.RequireSession(); err != nil {
		return Draft{}, err
	}
	if err := util.ValidateStruct(position{Latitude: lat, Longitude: lon}); err != nil {
		return Draft{}, validationError(err)
	}

	o.mu.Lock()
	if o.state == Submitting {
		o.mu.Unlock()
		return Draft{}, ErrSubmitInProgress
	}
	d := &Draft{
		ID:             uuid.New(),
		Latitude:       lat,
		Longitude:      lon,
		ExistingTagIDs: []int64{},
		NewTags:        []model.NewTag{},
	}
	o.draft = d
	o.state = DraftOpen
	view := d.clone()
	o.mu.Unlock()

	o.address.Resolve(lat, lon, func(addr string) { o.suggestAddress(d.ID, addr) })
	view.AddressLoading = o.address.Loading()

	log.Debug().Str("draft", d.ID.String()).Float64("lat", lat).Float64("lon", lon).Msg("draft opened")
	o.changed()
	return view, nil
}

// Draft returns the open draft, if any.
func (o *Orchestrator) Draft() (Draft, bool) {
	o.mu.Lock()
	if o.draft == nil {
		o.mu.Unlock()
		return Draft{}, false
	}
	view := o.draft.clone()
	o.mu.Unlock()

	view.AddressLoading = o.address.Loading()
	return view, true
}

func (o *Orchestrator) Update(f Fields) (Draft, error) {
	o.mu.Lock()
	d, err := o.editableLocked()
	if err != nil {
		o.mu.Unlock()
		return Draft{}, err
	}
	if f.Title != nil {
		d.Title = *f.Title
	}
	if f.Description != nil {
		d.Description = *f.Description
	}
	if f.Address != nil {
		d.Address = *f.Address
		d.AddressEdited = true
	}
	if f.ExistingTagIDs != nil {
		d.ExistingTagIDs = dedupeIDs(*f.ExistingTagIDs)
	}
	view := d.clone()
	o.mu.Unlock()

	o.changed()
	return view, nil
}

// AddTag adds a new mushroom type to the draft. Names are compared
// case-insensitively after trimming.
func (o *Orchestrator) AddTag(name string, category model.EdibilityCategory) (Draft, error) {
	tag := model.NewTag{Name: strings.TrimSpace(name), Category: category}
	if err := util.ValidateStruct(tag); err != nil {
		return Draft{}, validationError(err)
	}
	c, ok := model.ParseEdibilityCategory(string(category))
	if !ok {
		return Draft{}, &ValidationError{Field: "category", Reason: "must be EDIBLE, CONDITIONALLY_EDIBLE or POISONOUS"}
	}
	tag.Category = c

	o.mu.Lock()
	d, err := o.editableLocked()
	if err != nil {
		o.mu.Unlock()
		return Draft{}, err
	}
	for _, t := range d.NewTags {
		if strings.EqualFold(t.Name, tag.Name) {
			o.mu.Unlock()
			return Draft{}, &ValidationError{Field: "newTags", Reason: "duplicate mushroom type " + tag.Name}
		}
	}
	d.NewTags = append(d.NewTags, tag)
	view := d.clone()
	o.mu.Unlock()

	o.changed()
	return view, nil
}

// StageFiles validates and stages files. Rejected files are reported one by
// one and do not prevent the others from being staged.
func (o *Orchestrator) StageFiles(inputs []FileInput) ([]model.PendingUpload, []model.FileRejection, error) {
	o.mu.Lock()
	d, err := o.editableLocked()
	if err != nil {
		o.mu.Unlock()
		return nil, nil, err
	}
	staged, rejected := Stage(len(d.Files), inputs)
	d.Files = append(d.Files, staged...)
	o.mu.Unlock()

	for _, r := range rejected {
		log.Debug().Str("file", r.FileName).Str("reason", r.Reason).Msg("file rejected")
	}
	o.changed()
	return staged, rejected, nil
}

func (o *Orchestrator) Unstage(id uuid.UUID) error {
	o.mu.Lock()
	d, err := o.editableLocked()
	if err != nil {
		o.mu.Unlock()
		return err
	}
	for i, f := range d.Files {
		if f.ID == id {
			d.Files = append(d.Files[:i], d.Files[i+1:]...)
			o.mu.Unlock()
			o.changed()
			return nil
		}
	}
	o.mu.Unlock()
	return ErrUnknownFile
}

// Cancel drops the draft. During a submission the in-flight call is allowed
// to finish; its result and everything after it are discarded.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	wasSubmitting := o.state == Submitting
	o.gen++
	o.draft = nil
	o.state = Idle
	o.mu.Unlock()

	o.address.Cancel()
	if wasSubmitting {
		log.Info().Msg("submission cancelled, in-flight result will be discarded")
	}
	o.changed()
}

// Submit creates the place and uploads its staged files. Validation and
// authorization failures are returned as errors before any network call. A
// transport failure of the create call yields a Failed outcome and keeps the
// draft for a retry.
func (o *Orchestrator) Submit(ctx context.Context) (*Outcome, error) {
	o.mu.Lock()
	if o.state == Submitting {
		o.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if o.draft == nil {
		o.mu.Unlock()
		return nil, ErrNoDraft
	}
	d := o.draft
	req := model.CreatePlaceRequest{
		Title:          strings.TrimSpace(d.Title),
		Description:    strings.TrimSpace(d.Description),
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
		Address:        strings.TrimSpace(d.Address),
		ExistingTagIDs: append([]int64{}, d.ExistingTagIDs...),
		NewTags:        append([]model.NewTag{}, d.NewTags...),
	}
	if err := util.ValidateStruct(req); err != nil {
		o.mu.Unlock()
		return nil, validationError(err)
	}
	if _, err := o.gate.RequireSession(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	files := append([]model.PendingUpload{}, d.Files...)
	o.state = Submitting
	gen := o.gen
	o.mu.Unlock()
	o.changed()

	place, err := o.api.CreatePlace(ctx, req)
	if o.cancelled(gen) {
		return o.finish(gen, &Outcome{State: Cancelled, Message: "Submission cancelled"}), nil
	}
	if err != nil {
		err = o.gate.CheckMutation(ctx, err)
		log.Warn().Err(err).Str("title", req.Title).Msg("create place failed")
		var reauth *session.AuthorizationError
		return o.finish(gen, &Outcome{
			State: Failed, Message: "Could not create place", Error: err.Error(),
			Reauthenticate: errors.As(err, &reauth), err: err,
		}), nil
	}
	if place == nil || place.IsDraft() {
		err := errors.New("create place returned no id")
		return o.finish(gen, &Outcome{State: Failed, Message: "Could not create place", Error: err.Error(), err: err}), nil
	}
	if err := o.places.Append(*place); err != nil {
		log.Error().Err(err).Int64("place", place.ID).Msg("merge created place")
	}

	out := &Outcome{State: Succeeded, Place: place, Message: "Place created"}
	if len(files) > 0 {
		batch := UploadSequential(ctx, o.api, place.ID, files,
			func() bool { return o.cancelled(gen) },
			func(img model.PlaceImage) {
				if err := o.places.AppendImage(place.ID, img); err != nil {
					log.Error().Err(err).Int64("place", place.ID).Msg("merge uploaded image")
					return
				}
				place.Images = append(place.Images, img)
			},
		)
		for _, f := range batch.Failures() {
			var reauth *session.AuthorizationError
			if err := o.gate.CheckMutation(ctx, f.Err()); errors.As(err, &reauth) {
				out.Reauthenticate = true
				out.err = err
			}
		}
		out.Uploads = batch
		out.Message = "Place created, " + batch.Tally()
		if !batch.AllSucceeded() {
			out.State = PartiallyFailed
		}
		if o.cancelled(gen) {
			out.State = Cancelled
			out.Message = "Submission cancelled, " + batch.Tally()
		}
	}
	return o.finish(gen, out), nil
}

// finish records the outcome and moves to the next state. A Failed
// outcome goes back to DraftOpen with the draft untouched. The outcome of a
// cancelled submission is returned to its caller only; whatever was opened
// after the cancel is left alone.
func (o *Orchestrator) finish(gen uint64, out *Outcome) *Outcome {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		log.Info().Str("message", out.Message).Msg("discarded result of cancelled submission")
		return out
	}
	switch out.State {
	case Failed:
		o.state = DraftOpen
	default:
		o.state = Idle
		o.draft = nil
	}
	o.last = out
	o.mu.Unlock()

	if out.State != Failed {
		o.address.Cancel()
	}
	metrics.RecordSubmission(string(out.State))
	log.Info().Str("state", string(out.State)).Str("message", out.Message).Msg("submission finished")
	o.changed()
	return out
}

func (o *Orchestrator) cancelled(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen != o.gen
}

func (o *Orchestrator) editableLocked() (*Draft, error) {
	switch {
	case o.state == Submitting:
		return nil, ErrSubmitInProgress
	case o.draft == nil:
		return nil, ErrNoDraft
	}
	return o.draft, nil
}

// suggestAddress applies a geocoded address unless the user typed one or
// the draft is gone.
func (o *Orchestrator) suggestAddress(draftID uuid.UUID, addr string) {
	o.mu.Lock()
	if o.draft == nil || o.draft.ID != draftID || o.draft.AddressEdited || o.state == Submitting {
		o.mu.Unlock()
		return
	}
	o.draft.Address = addr
	o.mu.Unlock()
	o.changed()
}

func (o *Orchestrator) changed() {
	o.mu.Lock()
	fns := append([]func(){}, o.onChange...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
