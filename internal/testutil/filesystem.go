package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"photocat/internal/catalog"
)

// DefaultFileTime is the modification and birth time of files added with
// AddFile.
var DefaultFileTime = time.Date(2022, 9, 3, 12, 0, 0, 0, time.UTC)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	BirthTime   time.Time // zero means the filesystem does not record it
	IsDirectory bool
	OpenErr     error // returned by Open when set
}

// MockFilesystemManager is an in-memory filesystem for testing.
// This implementation is safe for concurrent use.
type MockFilesystemManager struct {
	mu       sync.RWMutex
	files    map[string]*MockFile
	walkErrs map[string]error
	opens    map[string]int
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:    make(map[string]*MockFile),
		walkErrs: make(map[string]error),
		opens:    make(map[string]int),
	}
}

// AddFile adds a file to the mock filesystem. Parent directories are
// added as needed.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     DefaultFileTime,
		BirthTime:   DefaultFileTime,
	}
	for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{Permissions: 0755, ModTime: DefaultFileTime, IsDirectory: true}
		}
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &MockFile{Permissions: 0755, ModTime: DefaultFileTime, IsDirectory: true}
}

// SetTimes sets the birth and modification time of an existing file.
func (m *MockFilesystemManager) SetTimes(path string, birth, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.files[path]
	f.BirthTime, f.ModTime = birth, modified
}

// SetContent replaces the content of an existing file.
func (m *MockFilesystemManager) SetContent(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path].Content = content
}

// FailOpen makes Open of path return err.
func (m *MockFilesystemManager) FailOpen(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path].OpenErr = err
}

// FailWalk makes FindFiles skip the directory dir and everything below
// it, reporting err for dir.
func (m *MockFilesystemManager) FailWalk(dir string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walkErrs[dir] = err
}

// Opens returns how many times Open was called for path.
func (m *MockFilesystemManager) Opens(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opens[path]
}

func (m *MockFilesystemManager) lookup(path string) (*MockFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return file, nil
}

func (m *MockFilesystemManager) pathFor(absPath string, file *MockFile) *catalog.Path {
	info := &mockFileInfo{
		name:    filepath.Base(absPath),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
	return catalog.NewPath(absPath, file.IsDirectory, info)
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*catalog.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}
	file, err := m.lookup(absPath)
	if err != nil {
		return nil, err
	}
	return m.pathFor(absPath, file), nil
}

func (m *MockFilesystemManager) Open(path *catalog.Path) (io.ReadCloser, error) {
	file, err := m.lookup(path.String())
	if err != nil {
		return nil, err
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	if file.OpenErr != nil {
		return nil, file.OpenErr
	}

	m.mu.Lock()
	m.opens[path.String()]++
	content := bytes.Clone(file.Content)
	m.mu.Unlock()
	return io.NopCloser(bytes.NewReader(content)), nil
}

// FindFiles returns every file below root in lexical order. Directories
// set up with FailWalk are skipped and reported.
func (m *MockFilesystemManager) FindFiles(root *catalog.Path) ([]*catalog.Path, []*catalog.FileError, error) {
	if !root.IsDir() {
		return []*catalog.Path{root}, nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := strings.TrimSuffix(root.String(), "/") + "/"
	var failed []string
	for dir := range m.walkErrs {
		if strings.HasPrefix(dir, prefix) {
			failed = append(failed, dir)
		}
	}
	sort.Strings(failed)

	var names []string
	for name, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(name, prefix) {
			continue
		}
		if slices.ContainsFunc(failed, func(dir string) bool { return strings.HasPrefix(name, dir+"/") }) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]*catalog.Path, 0, len(names))
	for _, name := range names {
		paths = append(paths, m.pathFor(name, m.files[name]))
	}
	var skipped []*catalog.FileError
	for _, dir := range failed {
		skipped = append(skipped, &catalog.FileError{Path: dir, Stage: catalog.StageWalk, Err: m.walkErrs[dir]})
	}
	return paths, skipped, nil
}

func (m *MockFilesystemManager) FileTimes(path *catalog.Path) (time.Time, time.Time, error) {
	file, err := m.lookup(path.String())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	created := file.BirthTime
	if created.IsZero() {
		created = file.ModTime
	}
	return created, file.ModTime, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ catalog.FilesystemManager = (*MockFilesystemManager)(nil)
