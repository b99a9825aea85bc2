package testutil

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Libreville is West Africa Time, where the cooperatives keep their books.
var Libreville = time.FixedZone("WAT", 60*60)

// FieldClock is a hand-driven agri.Clock. Safe for concurrent use.
type FieldClock struct {
	mu  sync.Mutex
	now time.Time
}

// FixedClock returns a FieldClock at 2024-03-04 08:15 Libreville time, the
// opening week of the long rainy-season planting.
func FixedClock() *FieldClock {
	return &FieldClock{now: time.Date(2024, 3, 4, 8, 15, 0, 0, Libreville)}
}

func (c *FieldClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FieldClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SeqIDs is an agri.IDGenerator yielding "id-1", "id-2", ...
type SeqIDs struct {
	n atomic.Int64
}

func NewSeqIDs() *SeqIDs {
	return &SeqIDs{}
}

func (g *SeqIDs) New() string {
	return "id-" + strconv.FormatInt(g.n.Add(1), 10)
}
