package catalog

import (
	"context"
	"io"
	"time"
)

// SidecarStore holds one metadata document per content id.
// Implementations must be safe for concurrent use; concurrent writes to the
// same id are serialized and no reader ever sees a partial document.
type SidecarStore interface {
	// Write stores doc for id according to mode and reports what changed.
	Write(ctx context.Context, id string, doc Document, mode MergeMode) (WriteResult, error)

	// Read returns the stored document for id. found is false when none exists.
	Read(ctx context.Context, id string) (doc Document, found bool, err error)

	// Exists reports whether a document is stored for id.
	Exists(ctx context.Context, id string) (bool, error)

	// ReadAll calls fn for every stored document in ascending id order.
	// Iteration stops at the first error returned by fn.
	ReadAll(ctx context.Context, fn func(id string, doc Document) error) error
}

// Manifest is the durable list of file records plus the run history.
type Manifest interface {
	// Upsert inserts rec or replaces the record with the same
	// (Filename, ContentID) key.
	Upsert(ctx context.Context, rec *FileRecord) error

	// Each streams the records matching filter ordered by content id, then
	// filename. fn must not call back into the manifest.
	Each(ctx context.Context, filter ManifestFilter, fn func(*FileRecord) error) error

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// CreateRun persists a new run record in the running state.
	CreateRun(ctx context.Context, run *IndexRun) error

	// FinishRun records the final status and counters of a run.
	FinishRun(ctx context.Context, run *IndexRun) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*IndexRun, error)

	// CheckMigrations verifies the manifest schema is current.
	CheckMigrations() error

	Close() error
}

// Extractor produces the raw metadata document for a file's bytes.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (Document, error)
}

// FilesystemManager abstracts filesystem access for the indexer.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path.
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// FindFiles returns the indexable files under root, recursively, in
	// lexical order. A file root is returned as-is. Entries that cannot be
	// read are skipped and reported in skipped with StageWalk; err is set
	// only when root itself cannot be listed.
	FindFiles(root *Path) (files []*Path, skipped []*FileError, err error)

	// FileTimes returns the creation and modification times of path.
	// Creation falls back to modification where birth time is unavailable.
	FileTimes(path *Path) (created, modified time.Time, err error)
}
