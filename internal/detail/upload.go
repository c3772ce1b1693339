package detail

import (
	"context"
	"strings"

	"github.com/bwise1/forest_places/internal/creation"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/bwise1/forest_places/internal/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoAffordance     = errors.New("upload is not offered for this place")
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrNoFilesToUpload  = errors.New("no valid files to upload")
)

type Uploader = creation.Uploader

// UploadAffordance exists only for the owner of the open place.
type UploadAffordance struct {
	PlaceID     int64  `json:"placeId"`
	Accept      string `json:"accept"`
	MaxFiles    int    `json:"maxFiles"`
	MaxFileSize int    `json:"maxFileSize"`
}

func newAffordance(placeID int64) *UploadAffordance {
	return &UploadAffordance{
		PlaceID:     placeID,
		Accept:      "image/*",
		MaxFiles:    creation.MaxFiles,
		MaxFileSize: creation.MaxFileSize,
	}
}

type UploadOutcome struct {
	PlaceID  int64                 `json:"placeId"`
	Batch    *creation.Batch       `json:"batch,omitempty"`
	Rejected []model.FileRejection `json:"rejected,omitempty"`
	Message  string                `json:"message"`
}

// UploadAffordance returns the upload affordance of the open place, or nil
// when nothing is open or the current user does not own the place.
func (c *Controller) UploadAffordance() *UploadAffordance {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	p, ok := c.places.Get(c.placeID)
	if !ok || !c.isOwner(p) {
		return nil
	}
	return newAffordance(p.ID)
}

// Upload adds photos to the open place. Without an affordance it returns
// ErrNoAffordance and makes no call. Files go through the same validation
// and sequential upload as a new place.
func (c *Controller) Upload(ctx context.Context, inputs []creation.FileInput) (*UploadOutcome, error) {
	aff := c.UploadAffordance()
	if aff == nil {
		return nil, ErrNoAffordance
	}

	staged, rejected := creation.Stage(0, inputs)
	out := &UploadOutcome{PlaceID: aff.PlaceID, Rejected: rejected}
	if len(staged) == 0 {
		out.Message = "No files uploaded"
		return out, ErrNoFilesToUpload
	}

	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	c.uploading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	batch := creation.UploadSequential(ctx, c.uploader, aff.PlaceID, staged, nil, func(img model.PlaceImage) {
		if err := c.places.AppendImage(aff.PlaceID, img); err != nil {
			log.Error().Err(err).Int64("place", aff.PlaceID).Msg("merge uploaded image")
		}
	})

	var authErr error
	for _, f := range batch.Failures() {
		var reauth *session.AuthorizationError
		if err := c.gate.CheckMutation(ctx, f.Err()); errors.As(err, &reauth) {
			authErr = err
		}
	}

	out.Batch = batch
	out.Message = batch.Tally()
	if len(rejected) > 0 {
		names := make([]string, 0, len(rejected))
		for _, r := range rejected {
			names = append(names, r.FileName)
		}
		out.Message += ", rejected: " + strings.Join(names, ", ")
	}
	log.Info().Int64("place", aff.PlaceID).Str("tally", batch.Tally()).Msg("photos uploaded")
	c.changed()
	return out, authErr
}
