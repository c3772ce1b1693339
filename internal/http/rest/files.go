package rest

import (
	"io"
	"net/http"

	"github.com/bwise1/forest_places/internal/creation"
	"github.com/pkg/errors"
)

const (
	multipartField = "file"
	// maxUploadBody bounds a whole upload request. It sits far above
	// MaxFiles full-size photos so oversized files are still reported one
	// by one.
	maxUploadBody = 512 << 20
	maxFileParts  = 100
	// sniffLen is what is kept of an oversized file, enough for MIME
	// detection.
	sniffLen = 3072
)

// readMultipartFiles streams the "file" parts of the form. Each part is read
// up to one byte past the file size limit. Oversized parts keep only a short
// prefix and their real size, so validation can reject them with a reason
// while their valid siblings are staged.
func readMultipartFiles(w http.ResponseWriter, r *http.Request) ([]creation.FileInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.Wrap(err, "read multipart form")
	}

	var inputs []creation.FileInput
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read multipart part")
		}
		if part.FormName() != multipartField || part.FileName() == "" {
			part.Close()
			continue
		}
		if len(inputs) >= maxFileParts {
			part.Close()
			return nil, errors.Errorf("too many files in one request, at most %d", maxFileParts)
		}

		in, err := readFilePart(part.FileName(), part.Header.Get("Content-Type"), part)
		part.Close()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil, errors.New(`no "file" parts in form`)
	}
	return inputs, nil
}

func readFilePart(name, contentType string, part io.Reader) (creation.FileInput, error) {
	data, err := io.ReadAll(io.LimitReader(part, creation.MaxFileSize+1))
	if err != nil {
		return creation.FileInput{}, errors.Wrapf(err, "read %s", name)
	}
	in := creation.FileInput{Name: name, ContentType: contentType, Data: data}
	if len(data) <= creation.MaxFileSize {
		return in, nil
	}

	rest, err := io.Copy(io.Discard, part)
	if err != nil {
		return creation.FileInput{}, errors.Wrapf(err, "read %s", name)
	}
	in.Size = int64(len(data)) + rest
	in.Data = append([]byte(nil), data[:sniffLen]...)
	return in, nil
}
