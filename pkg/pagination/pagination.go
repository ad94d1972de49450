package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit applies when a listing request does not name a page size.
	DefaultLimit = 25
	// MaxLimit is the hard ceiling on rows per page.
	MaxLimit = 100
)

// Params carries the page size and opaque position for a keyset listing.
type Params struct {
	Limit  int
	Cursor string
}

// PageSize clamps the requested limit into the allowed window.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Cursor pins a listing to the last row served. Ordering is created_at with
// the id as tiebreaker, so both travel in the token.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	token := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 10) + ":" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(token))
}

// Decode parses a client-supplied token. A blank token means start from the
// top and yields a nil cursor.
func Decode(raw string) (*Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, idPart, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, fmt.Errorf("malformed cursor token")
	}

	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor position: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: id}, nil
}
