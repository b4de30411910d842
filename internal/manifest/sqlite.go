package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"photocat/internal/catalog"
	"photocat/internal/manifest/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteManifest implements catalog.Manifest on a SQLite database.
type SQLiteManifest struct {
	db   *sql.DB
	path string
}

// NewSQLiteManifest opens the manifest at path and applies pending
// migrations. path can be a file path or ":memory:".
func NewSQLiteManifest(path string) (*SQLiteManifest, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating manifest: %w", err)
	}
	return &SQLiteManifest{db: db, path: path}, nil
}

// OpenSQLiteManifest opens the manifest at path for queries. No migration
// is applied and the database is never created: a missing file opens as
// an empty in-memory manifest. Callers check the schema with
// CheckMigrations.
func OpenSQLiteManifest(path string) (*SQLiteManifest, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewSQLiteManifest(":memory:")
	} else if err != nil {
		return nil, fmt.Errorf("stat manifest: %w", err)
	}
	db, err := openConnection(path, false)
	if err != nil {
		return nil, err
	}
	return &SQLiteManifest{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// A single connection is used: upserts come from one writer goroutine, and
// an in-memory database only exists within its connection.
func OpenConnection(path string) (*sql.DB, error) {
	return openConnection(path, path != ":memory:")
}

// openConnection switches a file database to WAL when wal is set. Query
// connections leave the journal mode alone.
func openConnection(path string, wal bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if wal {
		// WAL lets a query process read while an index run writes.
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

// Path returns the database location.
func (s *SQLiteManifest) Path() string {
	return s.path
}

func (s *SQLiteManifest) Upsert(ctx context.Context, rec *catalog.FileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_records (filename, content_id, url, created_at, modified_at, indexed_at, has_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (filename, content_id) DO UPDATE SET
			url = excluded.url,
			created_at = excluded.created_at,
			modified_at = excluded.modified_at,
			indexed_at = excluded.indexed_at,
			has_metadata = excluded.has_metadata`,
		rec.Filename, rec.ContentID, rec.URL,
		rec.CreatedAt.UTC(), rec.ModifiedAt.UTC(), rec.IndexedAt.UTC(), rec.HasMetadata,
	)
	if err != nil {
		return fmt.Errorf("upserting file record %s: %w", rec.Filename, err)
	}
	return nil
}

func (s *SQLiteManifest) Each(ctx context.Context, filter catalog.ManifestFilter, fn func(*catalog.FileRecord) error) error {
	query, args := buildEachQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying file records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec catalog.FileRecord
		if err := rows.Scan(&rec.Filename, &rec.ContentID, &rec.URL, &rec.CreatedAt, &rec.ModifiedAt, &rec.IndexedAt, &rec.HasMetadata); err != nil {
			return fmt.Errorf("scanning file record: %w", err)
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating file records: %w", err)
	}
	return nil
}

func buildEachQuery(filter catalog.ManifestFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if len(filter.ContentIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(filter.ContentIDs)), ",")
		where = append(where, "content_id IN ("+marks+")")
		for _, id := range filter.ContentIDs {
			args = append(args, id)
		}
	}
	if filter.URLContains != "" {
		where = append(where, "instr(url, ?) > 0")
		args = append(args, filter.URLContains)
	}
	if filter.FilenameContains != "" {
		where = append(where, "instr(filename, ?) > 0")
		args = append(args, filter.FilenameContains)
	}

	query := `SELECT filename, content_id, url, created_at, modified_at, indexed_at, has_metadata FROM file_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY content_id, filename"
	return query, args
}

func (s *SQLiteManifest) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting file records: %w", err)
	}
	return n, nil
}

func (s *SQLiteManifest) CreateRun(ctx context.Context, run *catalog.IndexRun) error {
	if run.Status == "" {
		run.Status = catalog.RunStatusRunning
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO index_runs (run_id, operation, parameters, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.Operation, run.Parameters, run.StartedAt.UTC(), run.Status,
	)
	if err != nil {
		return fmt.Errorf("creating index run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading index run id: %w", err)
	}
	run.ID = id
	return nil
}

func (s *SQLiteManifest) FinishRun(ctx context.Context, run *catalog.IndexRun) error {
	if run.ID == 0 {
		return fmt.Errorf("finishing index run: run was never created")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE index_runs
		SET finished_at = ?, status = ?, indexed = ?, unchanged = ?, failed = ?
		WHERE id = ?`,
		run.FinishedAt.UTC(), run.Status, run.Indexed, run.Unchanged, run.Failed, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing index run %d: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteManifest) ListRuns(ctx context.Context, limit int) ([]*catalog.IndexRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, operation, parameters, started_at, finished_at, status, indexed, unchanged, failed
		FROM index_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing index runs: %w", err)
	}
	defer rows.Close()

	var runs []*catalog.IndexRun
	for rows.Next() {
		var (
			run      catalog.IndexRun
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.RunID, &run.Operation, &run.Parameters, &run.StartedAt, &finished,
			&run.Status, &run.Indexed, &run.Unchanged, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning index run: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteManifest) CheckMigrations() error {
	return migrations.Check(s.db)
}

func (s *SQLiteManifest) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteManifest implements catalog.Manifest
var _ catalog.Manifest = (*SQLiteManifest)(nil)
