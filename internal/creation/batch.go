package creation

import (
	"context"
	"fmt"

	"github.com/bwise1/forest_places/internal/metrics"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/google/uuid"
)

// Uploader sends one file for a persisted place.
type Uploader interface {
	UploadImage(ctx context.Context, placeID int64, file model.PendingUpload) (*model.PlaceImage, error)
}

// UploadResult is the outcome of one file of a batch.
type UploadResult struct {
	FileID   uuid.UUID         `json:"fileId"`
	FileName string            `json:"fileName"`
	Image    *model.PlaceImage `json:"image,omitempty"`
	Error    string            `json:"error,omitempty"`
	Skipped  bool              `json:"skipped,omitempty"`

	err error
}

func (r UploadResult) OK() bool {
	return r.Image != nil && r.err == nil
}

func (r UploadResult) Err() error {
	return r.err
}

// Batch accumulates per-file upload results in the order they were attempted.
type Batch struct {
	Total   int            `json:"total"`
	Results []UploadResult `json:"results"`
}

func NewBatch(total int) *Batch {
	return &Batch{Total: total, Results: make([]UploadResult, 0, total)}
}

func (b *Batch) Record(file model.PendingUpload, img *model.PlaceImage, err error) {
	r := UploadResult{FileID: file.ID, FileName: file.FileName, err: err}
	if err != nil {
		r.Error = err.Error()
	} else {
		r.Image = img
	}
	b.Results = append(b.Results, r)
}

func (b *Batch) Skip(file model.PendingUpload) {
	b.Results = append(b.Results, UploadResult{FileID: file.ID, FileName: file.FileName, Skipped: true})
}

func (b *Batch) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Attempted counts files for which an upload call was made.
func (b *Batch) Attempted() int {
	n := 0
	for _, r := range b.Results {
		if !r.Skipped {
			n++
		}
	}
	return n
}

func (b *Batch) AllSucceeded() bool {
	return b.Succeeded() == b.Total
}

func (b *Batch) Failures() []UploadResult {
	var out []UploadResult
	for _, r := range b.Results {
		if !r.OK() && !r.Skipped {
			out = append(out, r)
		}
	}
	return out
}

// Tally is the human summary, e.g. "2 of 3 uploaded".
func (b *Batch) Tally() string {
	return fmt.Sprintf("%d of %d uploaded", b.Succeeded(), b.Total)
}

// UploadSequential uploads files one at a time, in order. A failed file is
// recorded and the next one is attempted. stop is checked before each call;
// once it reports true the remaining files are skipped. onImage runs after
// each successful upload.
func UploadSequential(ctx context.Context, up Uploader, placeID int64, files []model.PendingUpload, stop func() bool, onImage func(model.PlaceImage)) *Batch {
	b := NewBatch(len(files))
	for _, f := range files {
		if stop != nil && stop() {
			b.Skip(f)
			continue
		}
		img, err := up.UploadImage(ctx, placeID, f)
		metrics.RecordUpload(err)
		if err == nil && img == nil {
			err = fmt.Errorf("upload of %s returned no image", f.FileName)
		}
		if stop != nil && stop() {
			b.Skip(f)
			continue
		}
		b.Record(f, img, err)
		if err == nil && onImage != nil {
			onImage(*img)
		}
	}
	return b
}
