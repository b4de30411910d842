package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so indexing and range resolution are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator abstracts unique ID generation for index runs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
