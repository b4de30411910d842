package testutil

import (
	"testing"

	"photocat/internal/manifest"
)

// NewTestManifest creates a new in-memory SQLite manifest with migrations
// applied. The manifest is automatically closed when the test completes.
func NewTestManifest(t *testing.T) *manifest.SQLiteManifest {
	t.Helper()

	m, err := manifest.NewSQLiteManifest(":memory:")
	if err != nil {
		t.Fatalf("failed to create manifest: %v", err)
	}

	t.Cleanup(func() {
		m.Close()
	})

	return m
}
