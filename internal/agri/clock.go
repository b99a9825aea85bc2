package agri

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so record dates are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces the unique suffix of generated record keys.
type IDGenerator interface {
	New() string
}

// UUIDGenerator uses a full random UUID. Fleet keys are written with
// insert-or-replace, so a truncated suffix could overwrite another vehicle.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.NewString() }
