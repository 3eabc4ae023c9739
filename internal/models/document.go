package models

import "time"

// Document is an uploaded attachment (PDF) referenced from inquiry and
// project records. URL points at the object store key.
type Document struct {
	Name       string    `bson:"name" json:"name"`
	Size       int64     `bson:"size" json:"size"`
	URL        string    `bson:"url" json:"url"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploaded_at"`
}
