package manifest

import (
	"path/filepath"

	"photocat/internal/catalog"
	"photocat/internal/config"
)

// DBFileName is the manifest database inside a data folder.
const DBFileName = "photocat.db"

// NewManifestFromConfig creates a Manifest based on the manifest config type.
func NewManifestFromConfig(cfg config.ManifestConfig, dataDir string) (catalog.Manifest, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteManifest(filepath.Join(dataDir, DBFileName))
	case "memory":
		return NewSQLiteManifest(":memory:")
	default:
		return nil, catalog.Configf("unknown manifest type: %s", cfg.Type)
	}
}

// OpenManifestFromConfig opens a Manifest for read-only commands without
// migrating or creating it.
func OpenManifestFromConfig(cfg config.ManifestConfig, dataDir string) (catalog.Manifest, error) {
	switch cfg.Type {
	case "", "sqlite":
		return OpenSQLiteManifest(filepath.Join(dataDir, DBFileName))
	case "memory":
		return NewSQLiteManifest(":memory:")
	default:
		return nil, catalog.Configf("unknown manifest type: %s", cfg.Type)
	}
}
