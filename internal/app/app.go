package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"photocat/internal/catalog"
	"photocat/internal/config"
	"photocat/internal/extract"
	"photocat/internal/fs"
	"photocat/internal/manifest"
	"photocat/internal/normalize"
	"photocat/internal/query"
	"photocat/internal/sidecar"
)

// Options tune an App beyond what the config file holds.
type Options struct {
	// Verbose enables debug logging.
	Verbose bool
	// Stderr receives a copy of every log line. Defaults to os.Stderr.
	Stderr io.Writer
	// Clock defaults to the wall clock.
	Clock catalog.Clock
	// IDs generates run ids. Defaults to random UUIDs.
	IDs catalog.IDGenerator
	// ReadOnly opens the catalog for queries: the manifest is neither
	// created nor migrated, no sidecar or log directory is created and
	// logs go to Stderr only. Index is refused.
	ReadOnly bool
}

// App is the application layer between the CLI and the catalog packages.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and closes the manifest on Close.
type App struct {
	cfg      *config.Config
	fsmgr    catalog.FilesystemManager
	manifest catalog.Manifest
	indexer  *catalog.Indexer
	engine   *query.Engine
	clock    catalog.Clock
	runID    string
	logger   *slog.Logger
	logFile  *os.File
	readOnly bool
}

// New creates a fully wired App for the data folder dataDir.
// The caller must call Close when done.
func New(ctx context.Context, dataDir string, cfg *config.Config, opts Options) (*App, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = catalog.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = catalog.UUIDGenerator{}
	}

	rules, err := normalize.LoadRules(dataDir)
	if err != nil {
		return nil, fmt.Errorf("loading mapping rules: %w", err)
	}

	extractor, err := extract.NewExtractorFromConfig(cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("creating extractor: %w", err)
	}

	openSidecars, openManifest := sidecar.NewStoreFromConfig, manifest.NewManifestFromConfig
	if opts.ReadOnly {
		openSidecars, openManifest = sidecar.OpenStoreFromConfig, manifest.OpenManifestFromConfig
	}

	sidecars, err := openSidecars(ctx, cfg.Sidecar, dataDir)
	if err != nil {
		return nil, fmt.Errorf("creating sidecar store: %w", err)
	}

	m, err := openManifest(cfg.Manifest, dataDir)
	if err != nil {
		return nil, fmt.Errorf("creating manifest: %w", err)
	}

	if err := m.CheckMigrations(); err != nil {
		m.Close()
		return nil, fmt.Errorf("manifest schema out of date: %w", err)
	}

	runID := opts.IDs.New()
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	var (
		logger  *slog.Logger
		logFile *os.File
	)
	if opts.ReadOnly {
		logger = newStderrLogger(runID, level, opts.Stderr)
	} else {
		logger, logFile, err = newLogger(cfg.LogDir, runID, level, opts.Stderr)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore, cfg.AllowedExtensions)
	indexer := catalog.NewIndexer(fsmgr, extractor, sidecars, m, &slogAdapter{l: logger}, opts.Clock)
	engine := query.NewEngine(m, sidecars, normalize.New(rules), opts.Clock, cfg.Columns)

	logger.Debug("catalog opened", "library", dataDir, "sidecar", cfg.Sidecar.Type,
		"manifest", cfg.Manifest.Type, "rules", rules.Len())

	return &App{
		cfg:      cfg,
		fsmgr:    fsmgr,
		manifest: m,
		indexer:  indexer,
		engine:   engine,
		clock:    opts.Clock,
		runID:    runID,
		logger:   logger,
		logFile:  logFile,
		readOnly: opts.ReadOnly,
	}, nil
}

// resolveRoots turns raw command-line paths into Paths. A missing root is
// a configuration error.
func (a *App) resolveRoots(rawPaths []string) ([]*catalog.Path, error) {
	if len(rawPaths) == 0 {
		return nil, catalog.Configf("no folder given")
	}
	roots := make([]*catalog.Path, 0, len(rawPaths))
	for _, raw := range rawPaths {
		p, err := a.fsmgr.Resolve(raw)
		if err != nil {
			return nil, catalog.Configf("resolving %s: %v", raw, err)
		}
		roots = append(roots, p)
	}
	return roots, nil
}

// Index indexes every file under rawPaths and records the run in the
// manifest. progress, when non-nil, is called after each file. The summary
// is returned even when the run aborts.
func (a *App) Index(ctx context.Context, rawPaths []string, mode catalog.MergeMode, progress func(done, total int)) (*catalog.RunSummary, error) {
	if a.readOnly {
		return nil, errors.New("index needs a catalog opened for writing")
	}
	roots, err := a.resolveRoots(rawPaths)
	if err != nil {
		return nil, err
	}

	params := fmt.Sprintf("mode=%s roots=%s", mode, strings.Join(rootStrings(roots), ","))
	op := NewOperation(a.runID, "index", params, a.clock.Now())
	if err := a.manifest.CreateRun(ctx, op.Run()); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrStorage, err)
	}

	summary, indexErr := a.indexer.Index(ctx, roots, catalog.IndexOptions{
		MergeMode:   mode,
		Concurrency: a.cfg.Concurrency,
		Progress:    progress,
	})
	op.Record(summary, indexErr, a.clock.Now())

	// The run record is finished even when the caller's context is done.
	if err := a.manifest.FinishRun(context.WithoutCancel(ctx), op.Run()); err != nil {
		a.logger.Error("finishing run record", "error", err)
		if indexErr == nil {
			indexErr = fmt.Errorf("%w: %w", catalog.ErrStorage, err)
		}
	}
	return summary, indexErr
}

// List returns the files Index would process under rawPaths, without
// reading them. Entries the walk skips are logged.
func (a *App) List(rawPaths []string) ([]string, error) {
	roots, err := a.resolveRoots(rawPaths)
	if err != nil {
		return nil, err
	}
	files, _, err := a.indexer.Discover(roots)
	if err != nil {
		return nil, err
	}
	return rootStrings(files), nil
}

// Show streams the rows matching q.
func (a *App) Show(ctx context.Context, q query.Query, fn func(*normalize.DerivedRow) error) error {
	return a.engine.Show(ctx, q, fn)
}

// Summarize aggregates the rows matching q.
func (a *App) Summarize(ctx context.Context, q query.Query, opts query.SummaryOptions) (*query.SummaryResult, error) {
	return a.engine.Summarize(ctx, q, opts)
}

// MetaColumns returns the metadata columns show prints after the record
// columns.
func (a *App) MetaColumns(ctx context.Context) ([]string, error) {
	return a.engine.Columns(ctx)
}

// History returns the most recent index runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]*catalog.IndexRun, error) {
	return a.manifest.ListRuns(ctx, limit)
}

// Close closes the manifest and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.manifest.Close(); err != nil {
		firstErr = fmt.Errorf("closing manifest: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func rootStrings(paths []*catalog.Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}
