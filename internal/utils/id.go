package utils

import "github.com/google/uuid"

// NewID returns a new random document id. All collections key their documents
// by these strings so correlation ids can be copied across collections as-is.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether s parses as a document id.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
