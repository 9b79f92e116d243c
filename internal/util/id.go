package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random 24-char hex id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
