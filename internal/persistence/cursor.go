// Package persistence contains helpers shared by run store implementations.
package persistence

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursor reports a token that was not produced by EncodeCursor.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks a position in the append-only run history: After runs have
// already been returned and the last of them had LastID.
type Cursor struct {
	After  int
	LastID string
}

// EncodeCursor serialises the cursor to an opaque token.
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%d|%s", c.After, c.LastID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the encoded cursor token. An empty token yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidCursor
	}
	after, err := strconv.Atoi(parts[0])
	if err != nil || after <= 0 {
		return nil, ErrInvalidCursor
	}
	return &Cursor{After: after, LastID: parts[1]}, nil
}
