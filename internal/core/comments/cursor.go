package comments

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// Cursor is the decoded position of the last row on a page
type Cursor struct {
	ID        string
	CreatedAt int64 // unix microseconds
}

// EncodeCursor builds the opaque token for a row.
// Format: base64url("<created_at unix micros>|<id>")
func EncodeCursor(createdAt time.Time, id string) string {
	raw := strconv.FormatInt(createdAt.UnixMicro(), 10) + "|" + id
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
// A nil or empty cursor decodes to nil.
func DecodeCursor(cursor *string) (*Cursor, error) {
	if cursor == nil || *cursor == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(*cursor)
	if err != nil {
		return nil, invalidCursor()
	}

	ts, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, invalidCursor()
	}

	micros, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || micros < 0 {
		return nil, invalidCursor()
	}

	return &Cursor{CreatedAt: micros, ID: id}, nil
}

// After reports whether a row at (createdAt, id) sorts strictly after the cursor
func (c *Cursor) After(createdAt time.Time, id string) bool {
	ts := createdAt.UnixMicro()
	return ts > c.CreatedAt || (ts == c.CreatedAt && id > c.ID)
}

// Before reports whether a row at (createdAt, id) sorts strictly before the cursor
func (c *Cursor) Before(createdAt time.Time, id string) bool {
	ts := createdAt.UnixMicro()
	return ts < c.CreatedAt || (ts == c.CreatedAt && id < c.ID)
}

func invalidCursor() *Error {
	return NewValidationError("cursor", "INVALID", "invalid pagination cursor")
}
