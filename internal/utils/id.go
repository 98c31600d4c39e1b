// Package utils holds small helpers shared by the server packages.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier suitable for correlating log lines.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
