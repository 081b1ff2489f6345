package models

import "time"

// Image is stored metadata for an uploaded file. A row exists only if the
// referenced object was durably written to the blob store.
type Image struct {
	ID          string
	Filename    string
	ContentType string
	SizeBytes   int64
	Bucket      string
	ObjectKey   string
	Checksum    []byte
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
