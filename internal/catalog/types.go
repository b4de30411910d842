package catalog

import (
	"fmt"
	"time"
)

// FileRecord links one source file to the content id of its bytes.
// A record is keyed by (Filename, ContentID): the same bytes under two
// names produce two records that share one sidecar.
type FileRecord struct {
	URL         string
	Filename    string
	ContentID   string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	IndexedAt   time.Time
	HasMetadata bool
}

// MergeMode selects how a new metadata document combines with a stored one.
type MergeMode int

const (
	// MergeOverwrite replaces the stored document wholesale.
	MergeOverwrite MergeMode = iota
	// MergeFields merges objects recursively; arrays and scalars from the
	// new document replace the stored ones.
	MergeFields
)

func (m MergeMode) String() string {
	switch m {
	case MergeOverwrite:
		return "overwrite"
	case MergeFields:
		return "merge"
	default:
		return fmt.Sprintf("MergeMode(%d)", int(m))
	}
}

// WriteResult reports what a SidecarStore.Write did.
type WriteResult int

const (
	WriteCreated WriteResult = iota
	WriteReplaced
	WriteMerged
	// WriteUnchanged means the stored document already equalled the result
	// and nothing was written.
	WriteUnchanged
)

func (r WriteResult) String() string {
	switch r {
	case WriteCreated:
		return "created"
	case WriteReplaced:
		return "replaced"
	case WriteMerged:
		return "merged"
	case WriteUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("WriteResult(%d)", int(r))
	}
}

// Run statuses recorded in the manifest.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// IndexRun is the bookkeeping record of one CLI operation that mutated
// the catalog.
type IndexRun struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Indexed    int
	Unchanged  int
	Failed     int
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *IndexRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ManifestFilter narrows a manifest traversal. Zero values match everything.
type ManifestFilter struct {
	ContentIDs       []string
	URLContains      string
	FilenameContains string
}
