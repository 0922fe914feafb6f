package util

import "github.com/google/uuid"

// NewID returns a fresh opaque entity ID.
func NewID() string {
	return uuid.NewString()
}
