package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of files indexed in parallel when
// IndexOptions.Concurrency is not set.
const DefaultConcurrency = 4

// IndexOptions controls a single index run.
type IndexOptions struct {
	MergeMode   MergeMode
	Concurrency int

	// Progress, when set, is called after each file with the number of
	// files finished and the number discovered. Calls are serialized.
	Progress func(done, total int)
}

// RunSummary reports the outcome of an index run.
type RunSummary struct {
	Discovered int
	Indexed    int
	Unchanged  int
	Failed     int
	Failures   []*FileError
}

type fileOutcome int

const (
	outcomeIndexed fileOutcome = iota
	outcomeUnchanged
	outcomeFailed
)

// fileResult is what one worker produces for one file.
type fileResult struct {
	outcome fileOutcome
	record  *FileRecord // nil when the file could not be hashed
	fileErr *FileError
}

// Indexer walks source files, stores their metadata in the sidecar store
// and records them in the manifest.
type Indexer struct {
	fsmgr     FilesystemManager
	extractor Extractor
	sidecars  SidecarStore
	manifest  Manifest
	logger    Logger
	clock     Clock
	retry     RetryPolicy
}

// NewIndexer creates an Indexer with the default retry policy.
func NewIndexer(fsmgr FilesystemManager, extractor Extractor, sidecars SidecarStore, manifest Manifest, logger Logger, clock Clock) *Indexer {
	return &Indexer{
		fsmgr:     fsmgr,
		extractor: extractor,
		sidecars:  sidecars,
		manifest:  manifest,
		logger:    logger,
		clock:     clock,
		retry:     DefaultRetryPolicy,
	}
}

// SetRetryPolicy overrides the retry policy for storage calls.
func (ix *Indexer) SetRetryPolicy(p RetryPolicy) {
	ix.retry = p
}

// Discover returns the files that Index would process for roots, in
// discovery order, and the entries the walk had to skip. Duplicates
// reached through overlapping roots are returned once.
func (ix *Indexer) Discover(roots []*Path) ([]*Path, []*FileError, error) {
	seen := make(map[string]bool)
	var (
		files   []*Path
		skipped []*FileError
	)
	for _, root := range roots {
		found, bad, err := ix.fsmgr.FindFiles(root)
		if err != nil {
			return nil, nil, fmt.Errorf("listing %s: %w", root.String(), err)
		}
		for _, fe := range bad {
			ix.logger.Warn("entry skipped", "path", fe.Path, "stage", fe.Stage, "error", fe.Err)
		}
		skipped = append(skipped, bad...)
		for _, f := range found {
			if seen[f.String()] {
				continue
			}
			seen[f.String()] = true
			files = append(files, f)
		}
	}
	return files, skipped, nil
}

// Index processes every file under roots. Files are hashed and extracted
// by a bounded worker pool; manifest upserts go through a single writer
// goroutine. Per-file failures are recorded in the summary and do not stop
// the run. A storage failure that survives retries aborts the run and is
// returned together with the partial summary.
func (ix *Indexer) Index(ctx context.Context, roots []*Path, opts IndexOptions) (*RunSummary, error) {
	files, skipped, err := ix.Discover(roots)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		Discovered: len(files),
		Failed:     len(skipped),
		Failures:   skipped,
	}
	ix.logger.Info("index started", "files", len(files), "skipped", len(skipped), "mode", opts.MergeMode.String())

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan *FileRecord)
	var writerErr error
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for rec := range records {
			if writerErr != nil {
				continue
			}
			err := retry(runCtx, ix.retry, "manifest upsert", func() error {
				return ix.manifest.Upsert(runCtx, rec)
			})
			if err != nil {
				writerErr = err
				cancel()
			}
		}
	}()

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(concurrency)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := ix.indexFile(gctx, f, opts.MergeMode)
			if err != nil {
				return err
			}
			if res.record != nil {
				select {
				case records <- res.record:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			mu.Lock()
			defer mu.Unlock()
			switch res.outcome {
			case outcomeIndexed:
				summary.Indexed++
			case outcomeUnchanged:
				summary.Unchanged++
			case outcomeFailed:
				summary.Failed++
				summary.Failures = append(summary.Failures, res.fileErr)
			}
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(files))
			}
			return nil
		})
	}
	groupErr := g.Wait()
	close(records)
	<-writerDone

	switch {
	case writerErr != nil:
		err = writerErr
	case groupErr != nil && !errors.Is(groupErr, context.Canceled):
		err = groupErr
	case ctx.Err() != nil:
		err = ctx.Err()
	case groupErr != nil:
		err = groupErr
	}
	if err != nil {
		ix.logger.Error("index aborted", "error", err, "indexed", summary.Indexed, "unchanged", summary.Unchanged, "failed", summary.Failed)
		return summary, err
	}

	ix.logger.Info("index finished", "indexed", summary.Indexed, "unchanged", summary.Unchanged, "failed", summary.Failed)
	return summary, nil
}

// indexFile hashes, extracts and stores one file. The file is read once:
// the extractor consumes a reader that hashes as it goes, and the rest is
// hashed afterwards. The returned error is non-nil only for storage
// failures that should abort the run.
func (ix *Indexer) indexFile(ctx context.Context, path *Path, mode MergeMode) (*fileResult, error) {
	created, modified, err := ix.fsmgr.FileTimes(path)
	if err != nil {
		return ix.fail(path, StageStat, err, nil), nil
	}

	f, err := ix.fsmgr.Open(path)
	if err != nil {
		return ix.fail(path, StageHash, err, nil), nil
	}
	defer f.Close()

	hr := newHashingReader(f)
	doc, extractErr := ix.extractor.Extract(ctx, hr)
	if extractErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	id, err := hr.Sum()
	if err != nil {
		return ix.fail(path, StageHash, err, nil), nil
	}

	rec := &FileRecord{
		URL:        path.URL(),
		Filename:   path.String(),
		ContentID:  id,
		CreatedAt:  created.UTC(),
		ModifiedAt: modified.UTC(),
		IndexedAt:  ix.clock.Now().UTC(),
	}

	if extractErr != nil {
		var exists bool
		lookupErr := retry(ctx, ix.retry, "sidecar lookup", func() error {
			var err error
			exists, err = ix.sidecars.Exists(ctx, id)
			return err
		})
		if lookupErr != nil {
			return nil, lookupErr
		}
		rec.HasMetadata = exists
		return ix.fail(path, StageExtract, extractErr, rec), nil
	}

	var result WriteResult
	err = retry(ctx, ix.retry, "sidecar write", func() error {
		var err error
		result, err = ix.sidecars.Write(ctx, id, doc, mode)
		return err
	})
	if err != nil {
		return nil, err
	}
	rec.HasMetadata = true

	ix.logger.Debug("indexed file", "path", path.String(), "content_id", id, "sidecar", result.String())
	if result == WriteUnchanged {
		return &fileResult{outcome: outcomeUnchanged, record: rec}, nil
	}
	return &fileResult{outcome: outcomeIndexed, record: rec}, nil
}

func (ix *Indexer) fail(path *Path, stage string, err error, rec *FileRecord) *fileResult {
	fe := &FileError{Path: path.String(), Stage: stage, Err: err}
	ix.logger.Warn("file failed", "path", fe.Path, "stage", stage, "error", err)
	return &fileResult{outcome: outcomeFailed, record: rec, fileErr: fe}
}
