package creation

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bwise1/forest_places/internal/model"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MaxFileSize = 5 << 20
	MaxFiles    = 10
)

// FileInput is one file chosen by the user. Size is the full byte count
// when Data holds only a prefix of the file; zero means len(Data).
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
	Size        int64
}

// ValidateFile turns a selected file into a PendingUpload. An undeclared
// content type is sniffed from the data.
func ValidateFile(in FileInput) (model.PendingUpload, *ValidationError) {
	ct := strings.TrimSpace(in.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = mimetype.Detect(in.Data).String()
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	if !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return model.PendingUpload{}, &ValidationError{Field: "file", Reason: fmt.Sprintf("%s is not an image (%s)", in.Name, ct)}
	}
	size := int64(len(in.Data))
	if in.Size > size {
		size = in.Size
	}
	if size > MaxFileSize {
		return model.PendingUpload{}, &ValidationError{Field: "file", Reason: fmt.Sprintf("%s is larger than 5 MiB", in.Name)}
	}
	if size == 0 {
		return model.PendingUpload{}, &ValidationError{Field: "file", Reason: fmt.Sprintf("%s is empty", in.Name)}
	}

	return model.PendingUpload{
		ID:          uuid.New(),
		FileName:    in.Name,
		ContentType: ct,
		Size:        int64(len(in.Data)),
		Preview:     "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(in.Data),
		Data:        in.Data,
	}, nil
}

// Stage validates each input on its own. Valid files are accepted until the
// staged total reaches MaxFiles; every other file gets a rejection reason.
func Stage(alreadyStaged int, inputs []FileInput) ([]model.PendingUpload, []model.FileRejection) {
	var (
		staged   []model.PendingUpload
		rejected []model.FileRejection
	)
	for _, in := range inputs {
		up, verr := ValidateFile(in)
		if verr != nil {
			rejected = append(rejected, model.FileRejection{FileName: in.Name, Reason: verr.Reason})
			continue
		}
		if alreadyStaged+len(staged) >= MaxFiles {
			rejected = append(rejected, model.FileRejection{FileName: in.Name, Reason: fmt.Sprintf("too many files, at most %d", MaxFiles)})
			continue
		}
		staged = append(staged, up)
	}
	return staged, rejected
}
