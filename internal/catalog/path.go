package catalog

import (
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
)

// Path is an absolute filesystem path handed out by a FilesystemManager,
// together with the stat info taken when it was resolved.
type Path struct {
	abs   string
	isDir bool
	info  fs.FileInfo
}

// NewPath wraps an absolute path. Only FilesystemManager implementations
// should call it.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{abs: absPath, isDir: isDir, info: info}
}

func (p *Path) String() string { return p.abs }

func (p *Path) IsDir() bool { return p.isDir }

// Info returns the stat info cached at resolution time.
func (p *Path) Info() fs.FileInfo { return p.info }

// Ext returns the lowercased extension without the leading dot.
func (p *Path) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(p.abs), "."))
}

// URL renders the path as a file:// URI with reserved characters escaped.
func (p *Path) URL() string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p.abs)}
	return u.String()
}
