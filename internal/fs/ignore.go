package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-root ignore file read during discovery.
const IgnoreFileName = ".photocatignore"

// defaultIgnorePatterns drop the ignore file itself and the metadata
// litter that macOS and NAS indexers leave next to photos.
var defaultIgnorePatterns = []string{IgnoreFileName, ".DS_Store", "._*", "Thumbs.db", "@eaDir/", ".thumbnails/"}

// ignoreRule is one parsed line of an ignore list.
type ignoreRule struct {
	glob     string
	anchored bool // matched against the slash path relative to the root
	dirOnly  bool
	negate   bool
}

// IgnoreMatcher decides which walk entries discovery skips, with a subset
// of gitignore semantics:
//
//   - a pattern without '/' matches the basename at any depth;
//   - a pattern containing '/' (or starting with one) matches the path
//     relative to the walk root;
//   - a trailing '/' restricts the pattern to directories, whose whole
//     subtree is then skipped;
//   - a leading '!' re-includes what earlier patterns excluded.
//
// The last matching pattern decides.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw patterns. Blank lines and '#' comments are
// skipped; malformed globs never match.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range rawPatterns {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var r ignoreRule
		if rest, ok := strings.CutPrefix(line, "!"); ok {
			r.negate = true
			line = rest
		}
		if rest, ok := strings.CutSuffix(line, "/"); ok {
			r.dirOnly = true
			line = rest
		}
		if strings.Contains(line, "/") {
			r.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if line == "" {
			continue
		}
		if _, err := path.Match(line, ""); err != nil {
			continue
		}
		r.glob = line
		m.rules = append(m.rules, r)
	}
	return m
}

// Len returns the number of usable patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.rules)
}

// Match reports whether relativePath, relative to the walk root, is ignored.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	rel := filepath.ToSlash(relativePath)
	base := path.Base(rel)

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		subject := base
		if r.anchored {
			subject = rel
		}
		if ok, _ := path.Match(r.glob, subject); ok {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile returns the lines of an ignore file, or nil when the
// file does not exist.
func ParseIgnoreFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", name, err)
	}
	return lines, nil
}
