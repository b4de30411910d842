package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photocat/internal/catalog"
)

// OSFilesystemManager is the real filesystem implementation of
// catalog.FilesystemManager.
type OSFilesystemManager struct {
	ignore     []string
	extensions map[string]bool // lowercase, without dot; empty = all
}

// NewOSFilesystemManager creates a filesystem manager. ignore holds extra
// ignore patterns from config; extensions limits discovery to those file
// extensions (case-insensitive, with or without a leading dot).
func NewOSFilesystemManager(ignore []string, extensions []string) *OSFilesystemManager {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts[e] = true
		}
	}
	return &OSFilesystemManager{ignore: ignore, extensions: exts}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*catalog.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return catalog.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *catalog.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// Allowed reports whether name has one of the configured extensions.
func (m *OSFilesystemManager) Allowed(name string) bool {
	if len(m.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return m.extensions[ext]
}

// FindFiles walks root recursively and returns the regular files with an
// allowed extension that no ignore pattern matches. Patterns come from the
// defaults, the config and root/.photocatignore. Symlinks are not followed.
// Entries the walk cannot read are skipped: an unreadable directory loses
// its whole subtree.
func (m *OSFilesystemManager) FindFiles(root *catalog.Path) ([]*catalog.Path, []*catalog.FileError, error) {
	if !root.IsDir() {
		if !root.Info().Mode().IsRegular() {
			return nil, nil, fmt.Errorf("not a regular file: %s", root.String())
		}
		return []*catalog.Path{root}, nil, nil
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(root.String(), IgnoreFileName))
	if err != nil {
		return nil, nil, err
	}
	patterns := append(append(append([]string{}, defaultIgnorePatterns...), m.ignore...), filePatterns...)
	matcher := NewIgnoreMatcher(patterns)

	var (
		paths   []*catalog.Path
		skipped []*catalog.FileError
	)
	skip := func(p string, err error) {
		skipped = append(skipped, &catalog.FileError{Path: p, Stage: catalog.StageWalk, Err: err})
	}
	err = filepath.WalkDir(root.String(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			skip(p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root.String() {
			return nil
		}
		rel, err := filepath.Rel(root.String(), p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if matcher.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel, false) || !m.Allowed(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			skip(p, err)
			return nil
		}
		paths = append(paths, catalog.NewPath(p, false, info))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking directory: %w", err)
	}
	return paths, skipped, nil
}

// FileTimes returns the birth time (falling back to mtime) and mtime of path.
func (m *OSFilesystemManager) FileTimes(path *catalog.Path) (time.Time, time.Time, error) {
	info, err := os.Stat(path.String())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("stat %s: %w", path.String(), err)
	}
	modified := info.ModTime()
	created, ok := birthTime(path.String(), info)
	if !ok {
		created = modified
	}
	return created, modified, nil
}

// Compile-time check that OSFilesystemManager implements catalog.FilesystemManager
var _ catalog.FilesystemManager = (*OSFilesystemManager)(nil)
