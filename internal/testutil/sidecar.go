package testutil

import (
	"photocat/internal/sidecar"
)

// NewTestSidecarStore creates a new in-memory sidecar store for testing.
func NewTestSidecarStore() *sidecar.MemoryStore {
	return sidecar.NewMemoryStore()
}
