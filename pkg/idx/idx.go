// Package idx generates and validates the ULID identifiers used for
// accounts and sessions. IDs are lexicographically sortable by
// creation time, which keeps "newest first" listings a plain ORDER BY.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a canonical 26-character ULID string.
type ID string

// Zero is the empty ID, only meaningful as a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var entropy = struct {
	sync.Mutex
	src *ulid.MonotonicEntropy
}{src: ulid.Monotonic(rand.Reader, 0)}

// New returns an ID stamped with the current UTC time.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt returns an ID stamped with t. IDs generated within the same
// millisecond still order by generation, the entropy source is
// monotonic.
func NewAt(t time.Time) ID {
	entropy.Lock()
	defer entropy.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(t), entropy.src).String())
}

// Parse validates s as a strict ULID and returns it as an ID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// IsZero reports whether id is the placeholder value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Time extracts the embedded creation timestamp, zero time when the
// id itself is zero or malformed. Resolution is one millisecond.
func (id ID) Time() time.Time {
	if id.IsZero() {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// Compare orders a and b lexically: -1, 0, or 1. For valid IDs this
// is creation order.
func Compare(a, b ID) int {
	return strings.Compare(string(a), string(b))
}
