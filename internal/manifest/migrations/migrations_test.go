package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// openTestDB opens an in-memory SQLite database. Every connection to
// :memory: is a separate database, so the pool is capped at one.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUp_createsTables(t *testing.T) {
	db := openTestDB(t)
	if err := Up(db); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	for _, table := range []string{"file_records", "index_runs", "schema_migrations"} {
		var name string
		if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestCheck(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		db := openTestDB(t)
		if err := Check(db); !errors.Is(err, ErrNoSchema) {
			t.Errorf("Check() error = %v, want ErrNoSchema", err)
		}
	})

	t.Run("after Up, twice", func(t *testing.T) {
		db := openTestDB(t)
		for i := range 2 {
			if err := Up(db); err != nil {
				t.Fatalf("Up() #%d error = %v", i+1, err)
			}
		}
		if err := Check(db); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("dirty", func(t *testing.T) {
		db := openTestDB(t)
		if err := Up(db); err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
			t.Fatal(err)
		}
		if err := Check(db); !errors.Is(err, ErrDirty) {
			t.Errorf("Check() error = %v, want ErrDirty", err)
		}
	})

	t.Run("ahead of binary", func(t *testing.T) {
		db := openTestDB(t)
		if err := Up(db); err != nil {
			t.Fatal(err)
		}
		if _, err := db.Exec(`UPDATE schema_migrations SET version = version + 1`); err != nil {
			t.Fatal(err)
		}
		if err := Check(db); !errors.Is(err, ErrVersionSkew) {
			t.Errorf("Check() error = %v, want ErrVersionSkew", err)
		}
	})
}

func TestInspect(t *testing.T) {
	db := openTestDB(t)
	if err := Up(db); err != nil {
		t.Fatal(err)
	}
	latest, err := Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	st, err := Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if st != (Status{Current: latest, Latest: latest}) {
		t.Errorf("Inspect() = %+v, want current = latest = %d", st, latest)
	}
}

func TestSchema_fileRecordKey(t *testing.T) {
	db := openTestDB(t)
	if err := Up(db); err != nil {
		t.Fatal(err)
	}

	insert := `INSERT INTO file_records (filename, content_id, url, created_at, modified_at, indexed_at)
		VALUES (?, ?, 'file:///a.jpg', datetime('now'), datetime('now'), datetime('now'))`

	if _, err := db.Exec(insert, "/a.jpg", "id-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Exec(insert, "/a.jpg", "id-2"); err != nil {
		t.Errorf("same filename with new content rejected: %v", err)
	}
	if _, err := db.Exec(insert, "/b.jpg", "id-1"); err != nil {
		t.Errorf("same content at another path rejected: %v", err)
	}
	if _, err := db.Exec(insert, "/a.jpg", "id-1"); err == nil {
		t.Error("duplicate (filename, content_id) accepted")
	}
}
