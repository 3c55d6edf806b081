package records

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator allocates record ids.
type IDGenerator interface {
	NewID() string
}

// seeder is implemented by generators that must move past ids loaded from a backend.
type seeder interface {
	Seed(ids []string)
}

// TimestampIDs produces millisecond Unix timestamps as decimal strings, e.g.
// "1700000000000". Ids are strictly increasing within a process: when two ids are
// requested in the same millisecond the second one is bumped by one.
type TimestampIDs struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewTimestampIDs returns a generator reading the wall clock.
func NewTimestampIDs() *TimestampIDs {
	return &TimestampIDs{now: time.Now}
}

func (g *TimestampIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now
	if g.now != nil {
		now = g.now
	}

	id := now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}

// Seed records the largest numeric id in ids so later ids sort after it.
// Non-numeric ids are ignored.
func (g *TimestampIDs) Seed(ids []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		if n > g.last {
			g.last = n
		}
	}
}

// UUIDs produces random version 4 UUIDs.
type UUIDs struct{}

func (UUIDs) NewID() string {
	return uuid.NewString()
}
