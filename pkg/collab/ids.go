package collab

import (
	"strings"

	"github.com/google/uuid"
)

func shortHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// NewSessionID generates a collab_<12 hex> session identifier.
func NewSessionID() string {
	return "collab_" + shortHex(12)
}

// NewCommentID generates a comment_<8 hex> comment identifier.
func NewCommentID() string {
	return "comment_" + shortHex(8)
}

func newConflictID() string {
	return uuid.NewString()
}
