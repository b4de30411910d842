package sidecar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"photocat/internal/catalog"
)

// errCorrupt marks a stored sidecar that is not a valid JSON object.
var errCorrupt = errors.New("corrupt sidecar")

// FileSystemStore keeps one JSON file per content id:
//
//	<root>/
//	  meta/
//	    <content-id>.json
type FileSystemStore struct {
	dir   string
	locks keyedMutex
}

// NewFileSystemStore creates a store under root/meta, creating the
// directory if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	dir := filepath.Join(root, "meta")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sidecar directory: %w", err)
	}
	return &FileSystemStore{dir: dir}, nil
}

// OpenFileSystemStore opens the store under root/meta for reading. The
// directory is not created; a missing one holds no sidecars.
func OpenFileSystemStore(root string) *FileSystemStore {
	return &FileSystemStore{dir: filepath.Join(root, "meta")}
}

// Dir returns the directory holding the sidecar files.
func (s *FileSystemStore) Dir() string {
	return s.dir
}

func (s *FileSystemStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Write stores doc for id. A stored sidecar that cannot be parsed is
// replaced rather than merged into.
func (s *FileSystemStore) Write(ctx context.Context, id string, doc catalog.Document, mode catalog.MergeMode) (catalog.WriteResult, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	existing, found, err := s.read(id)
	if errors.Is(err, errCorrupt) {
		existing, found = nil, false
	} else if err != nil {
		return 0, err
	}

	next, result := plan(existing, found, doc, mode)
	if result == catalog.WriteUnchanged {
		return result, nil
	}
	if errors.Is(err, errCorrupt) {
		result = catalog.WriteReplaced
	}

	data, err := catalog.EncodeDocument(next)
	if err != nil {
		return 0, err
	}
	if err := writeFile(s.path(id), data); err != nil {
		return 0, err
	}
	return result, nil
}

// Read returns the document stored for id.
func (s *FileSystemStore) Read(ctx context.Context, id string) (catalog.Document, bool, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return s.read(id)
}

// Exists reports whether a sidecar file exists for id.
func (s *FileSystemStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := catalog.ValidateContentID(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat sidecar %s: %w", id, err)
}

// ReadAll visits every sidecar in ascending id order.
func (s *FileSystemStore) ReadAll(ctx context.Context, fn func(id string, doc catalog.Document) error) error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading sidecar directory: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if catalog.ValidateContentID(id) != nil {
			continue
		}
		doc, found, err := s.read(id)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := fn(id, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileSystemStore) read(id string) (catalog.Document, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading sidecar %s: %w", id, err)
	}
	doc, err := catalog.DecodeDocumentBytes(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w %s: %w", errCorrupt, id, err)
	}
	return doc, true, nil
}

// writeFile writes data to destPath atomically (temp file + rename), so
// readers see either the old document or the new one.
func writeFile(destPath string, data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements catalog.SidecarStore
var _ catalog.SidecarStore = (*FileSystemStore)(nil)
