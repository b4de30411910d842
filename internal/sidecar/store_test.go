package sidecar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"photocat/internal/catalog"
)

// testID returns a valid content id derived from s.
func testID(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// storeFactories lists every store implementation exercised by the shared tests.
func storeFactories() map[string]func(t *testing.T) catalog.SidecarStore {
	return map[string]func(t *testing.T) catalog.SidecarStore{
		"filesystem": func(t *testing.T) catalog.SidecarStore {
			s, err := NewFileSystemStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemStore() error = %v", err)
			}
			return s
		},
		"memory": func(t *testing.T) catalog.SidecarStore {
			return NewMemoryStore()
		},
		"s3": func(t *testing.T) catalog.SidecarStore {
			return NewS3Store(newFakeS3(), "bucket", "catalog")
		},
	}
}

func TestSidecarStore_Write(t *testing.T) {
	ctx := context.Background()
	id := testID("photo")

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("creates then replaces", func(t *testing.T) {
				s := newStore(t)

				res, err := s.Write(ctx, id, catalog.Document{"A": "1", "B": "2"}, catalog.MergeOverwrite)
				if err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				if res != catalog.WriteCreated {
					t.Errorf("first Write() = %v, want created", res)
				}

				res, err = s.Write(ctx, id, catalog.Document{"B": "3"}, catalog.MergeOverwrite)
				if err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				if res != catalog.WriteReplaced {
					t.Errorf("second Write() = %v, want replaced", res)
				}

				got, found, err := s.Read(ctx, id)
				if err != nil || !found {
					t.Fatalf("Read() = %v, %v, %v", got, found, err)
				}
				if diff := cmp.Diff(catalog.Document{"B": "3"}, got); diff != "" {
					t.Errorf("Read() mismatch (-want +got):\n%s", diff)
				}
			})

			t.Run("merge keeps old-only fields", func(t *testing.T) {
				s := newStore(t)

				if _, err := s.Write(ctx, id, catalog.Document{"A": "1", "B": "2"}, catalog.MergeFields); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				res, err := s.Write(ctx, id, catalog.Document{"B": "3", "C": "4"}, catalog.MergeFields)
				if err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				if res != catalog.WriteMerged {
					t.Errorf("Write() = %v, want merged", res)
				}

				got, _, err := s.Read(ctx, id)
				if err != nil {
					t.Fatalf("Read() error = %v", err)
				}
				want := catalog.Document{"A": "1", "B": "3", "C": "4"}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("Read() mismatch (-want +got):\n%s", diff)
				}
			})

			t.Run("identical document is unchanged", func(t *testing.T) {
				s := newStore(t)
				doc := catalog.Document{"FNumber": json.Number("2.8"), "Model": "X100V"}

				if _, err := s.Write(ctx, id, doc, catalog.MergeOverwrite); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				for _, mode := range []catalog.MergeMode{catalog.MergeOverwrite, catalog.MergeFields} {
					res, err := s.Write(ctx, id, doc, mode)
					if err != nil {
						t.Fatalf("Write(%v) error = %v", mode, err)
					}
					if res != catalog.WriteUnchanged {
						t.Errorf("Write(%v) = %v, want unchanged", mode, res)
					}
				}
			})

			t.Run("rejects invalid id", func(t *testing.T) {
				s := newStore(t)
				if _, err := s.Write(ctx, "../escape", catalog.Document{}, catalog.MergeOverwrite); err == nil {
					t.Error("Write() expected error for invalid id")
				}
			})
		})
	}
}

func TestSidecarStore_ReadMissing(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			doc, found, err := s.Read(ctx, testID("absent"))
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if found || doc != nil {
				t.Errorf("Read() = %v, %v, want nil, false", doc, found)
			}

			exists, err := s.Exists(ctx, testID("absent"))
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if exists {
				t.Error("Exists() = true, want false")
			}
		})
	}
}

func TestSidecarStore_ReadAll(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			var ids []string
			for i := range 5 {
				id := testID(fmt.Sprintf("file-%d", i))
				ids = append(ids, id)
				if _, err := s.Write(ctx, id, catalog.Document{"N": json.Number(fmt.Sprint(i))}, catalog.MergeOverwrite); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}

			var got []string
			err := s.ReadAll(ctx, func(id string, doc catalog.Document) error {
				got = append(got, id)
				if _, ok := doc["N"]; !ok {
					t.Errorf("document %s missing N", id)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}

			for i := 1; i < len(got); i++ {
				if got[i-1] >= got[i] {
					t.Fatalf("ReadAll() not in id order: %v", got)
				}
			}
			if len(got) != len(ids) {
				t.Errorf("ReadAll() visited %d documents, want %d", len(got), len(ids))
			}
		})
	}
}

func TestSidecarStore_ReadAll_stopsOnError(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			for i := range 3 {
				if _, err := s.Write(ctx, testID(fmt.Sprint(i)), catalog.Document{"A": "1"}, catalog.MergeOverwrite); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}

			stop := fmt.Errorf("stop")
			calls := 0
			err := s.ReadAll(ctx, func(string, catalog.Document) error {
				calls++
				return stop
			})
			if err != stop {
				t.Errorf("ReadAll() error = %v, want %v", err, stop)
			}
			if calls != 1 {
				t.Errorf("callback called %d times, want 1", calls)
			}
		})
	}
}

func TestSidecarStore_ConcurrentWritesSameID(t *testing.T) {
	ctx := context.Background()
	id := testID("shared")

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			var wg sync.WaitGroup
			for i := range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					doc := catalog.Document{fmt.Sprintf("K%02d", i): "v"}
					if _, err := s.Write(ctx, id, doc, catalog.MergeFields); err != nil {
						t.Errorf("Write() error = %v", err)
					}
				}()
			}
			wg.Wait()

			got, _, err := s.Read(ctx, id)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if len(got) != 20 {
				t.Errorf("merged document has %d keys, want 20 (lost update)", len(got))
			}
		})
	}
}
