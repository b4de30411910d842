package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"photocat/internal/catalog"
)

// ErrNoFakeMetadata is returned by FakeExtractor for content it does not
// know.
var ErrNoFakeMetadata = errors.New("fake extractor: no metadata for content")

// FakeExtractor returns canned documents keyed by file content. Unknown
// content fails extraction. Safe for concurrent use.
type FakeExtractor struct {
	mu    sync.Mutex
	docs  map[string]catalog.Document
	calls int
}

// NewFakeExtractor creates a FakeExtractor with no documents.
func NewFakeExtractor() *FakeExtractor {
	return &FakeExtractor{docs: make(map[string]catalog.Document)}
}

// SetDocument makes files whose bytes equal content extract to doc.
func (f *FakeExtractor) SetDocument(content []byte, doc catalog.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[string(content)] = doc
}

// Calls returns how many times Extract ran.
func (f *FakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeExtractor) Extract(ctx context.Context, r io.Reader) (catalog.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	doc, ok := f.docs[string(data)]
	if !ok {
		return nil, ErrNoFakeMetadata
	}
	return doc.Clone(), nil
}

var _ catalog.Extractor = (*FakeExtractor)(nil)
