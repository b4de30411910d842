// Package migrations holds the manifest schema as golang-migrate up/down
// pairs embedded in the binary.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var files embed.FS

var (
	ErrNoSchema    = errors.New("manifest has no schema version")
	ErrDirty       = errors.New("manifest schema is dirty")
	ErrVersionSkew = errors.New("manifest schema version does not match this binary")
)

// Status describes the schema of one manifest database.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// Inspect reads the schema version of db. A database that was never
// migrated reports ErrNoSchema.
func Inspect(db *sql.DB) (Status, error) {
	latest, err := Latest()
	if err != nil {
		return Status{}, err
	}

	m, err := open(db)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: closing it would close db, which the caller owns.

	current, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{Latest: latest}, ErrNoSchema
	}
	if err != nil {
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	}
	return Status{Current: current, Latest: latest, Dirty: dirty}, nil
}

// Check returns nil when db is at the latest schema version.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	switch {
	case st.Dirty:
		return fmt.Errorf("%w at version %d: a previous migration failed", ErrDirty, st.Current)
	case st.Current != st.Latest:
		return fmt.Errorf("%w: database at %d, binary at %d", ErrVersionSkew, st.Current, st.Latest)
	}
	return nil
}

// Up applies every pending migration. An up-to-date database is left alone.
func Up(db *sql.DB) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating manifest: %w", err)
	}
	return nil
}

// Latest returns the highest schema version shipped with the binary.
func Latest() (uint, error) {
	src, err := newSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("reading first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("reading migration after %d: %w", v, err)
		}
		v = next
	}
}

func newSource() (source.Driver, error) {
	src, err := iofs.New(files, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}
	return src, nil
}

func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}
