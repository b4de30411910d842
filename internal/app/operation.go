package app

import (
	"time"

	"photocat/internal/catalog"
)

// Operation tracks a CLI command that mutates the catalog. It is created
// in memory with ID=0; the manifest assigns the ID when the run is created.
type Operation struct {
	run *catalog.IndexRun
}

// NewOperation creates a new in-memory operation in the running state.
func NewOperation(runID, operation, parameters string, started time.Time) *Operation {
	return &Operation{run: &catalog.IndexRun{
		RunID:      runID,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  started.UTC(),
		Status:     catalog.RunStatusRunning,
	}}
}

// Run returns the record persisted in the manifest.
func (op *Operation) Run() *catalog.IndexRun {
	return op.run
}

// Persisted returns true if this operation has been saved to the manifest.
func (op *Operation) Persisted() bool {
	return op.run.ID != 0
}

// Record copies the counters of summary, which may be nil, and sets the
// final status from err.
func (op *Operation) Record(summary *catalog.RunSummary, err error, finished time.Time) {
	if summary != nil {
		op.run.Indexed = summary.Indexed
		op.run.Unchanged = summary.Unchanged
		op.run.Failed = summary.Failed
	}
	op.run.Status = catalog.RunStatusSuccess
	if err != nil {
		op.run.Status = catalog.RunStatusError
	}
	op.run.FinishedAt = finished.UTC()
}
