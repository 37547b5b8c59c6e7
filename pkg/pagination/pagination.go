// Package pagination implements keyset paging over rows ordered by
// (created_at, id). Cursors are opaque to callers.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLimit is the page size when a limit is not provided.
	DefaultLimit = 1000
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 1000

	separator = "|"
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the position of the last row of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer returns the normalized limit plus one, so a query can tell
// whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + separator + strconv.FormatInt(cursor.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor produced by EncodeCursor. A blank value means
// "from the start" and yields nil without error.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	rawTime, rawID, ok := strings.Cut(string(decoded), separator)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}

	at, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid cursor id %q", rawID)
	}
	return &Cursor{CreatedAt: at.UTC(), ID: id}, nil
}

// Split trims rows fetched with LimitWithBuffer down to limit and returns the
// cursor of the last kept row when more rows remain. The returned slice is
// never nil.
func Split[T any](rows []T, limit int, position func(T) Cursor) ([]T, string) {
	if rows == nil {
		return []T{}, ""
	}
	if limit <= 0 || len(rows) <= limit {
		return rows, ""
	}
	page := rows[:limit]
	return page, EncodeCursor(position(page[limit-1]))
}
