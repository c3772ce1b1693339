package model

import "github.com/google/uuid"

// PendingUpload is a staged file waiting for its upload attempt. It lives
// only on the client.
type PendingUpload struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Preview     string    `json:"preview"`
	Data        []byte    `json:"-"`
}

// FileRejection explains why a single selected file was not staged.
type FileRejection struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}
