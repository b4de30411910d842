package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"photocat/internal/catalog"
)

// ExifExtractor reads EXIF tags in-process. It needs no external tools
// but only understands formats goexif can decode (JPEG, TIFF-based raw).
type ExifExtractor struct {
	timeout time.Duration
}

// NewExifExtractor creates an in-process extractor. Zero timeout selects
// DefaultTimeout.
func NewExifExtractor(timeout time.Duration) *ExifExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExifExtractor{timeout: timeout}
}

type exifResult struct {
	doc catalog.Document
	err error
}

// Extract decodes EXIF from r. Tags are stored under their EXIF names;
// single strings, integers and rationals are unwrapped, anything else is
// kept in goexif's textual form.
func (e *ExifExtractor) Extract(ctx context.Context, r io.Reader) (catalog.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan exifResult, 1)
	go func() {
		doc, err := decodeExif(r)
		done <- exifResult{doc: doc, err: err}
	}()

	select {
	case res := <-done:
		return res.doc, res.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s: goexif", ErrTimeout, e.timeout)
		}
		return nil, ctx.Err()
	}
}

func decodeExif(r io.Reader) (catalog.Document, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding exif: %w", err)
	}

	w := &docWalker{doc: make(map[string]any)}
	if err := x.Walk(w); err != nil {
		return nil, fmt.Errorf("walking exif tags: %w", err)
	}
	if len(w.doc) == 0 {
		return nil, ErrNoOutput
	}

	// Round trip through JSON so values have the same types as documents
	// read back from a sidecar store.
	data, err := json.Marshal(w.doc)
	if err != nil {
		return nil, fmt.Errorf("encoding exif tags: %w", err)
	}
	return catalog.DecodeDocumentBytes(data)
}

// docWalker implements exif.Walker.
type docWalker struct {
	doc map[string]any
}

func (w *docWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.doc[string(name)] = tagValue(tag)
	return nil
}

func tagValue(tag *tiff.Tag) any {
	if tag.Count == 1 || tag.Format() == tiff.StringVal {
		switch tag.Format() {
		case tiff.StringVal:
			if s, err := tag.StringVal(); err == nil {
				return strings.TrimRight(s, "\x00 ")
			}
		case tiff.IntVal:
			if v, err := tag.Int64(0); err == nil {
				return v
			}
		case tiff.RatVal:
			if num, den, err := tag.Rat2(0); err == nil && den != 0 {
				return float64(num) / float64(den)
			}
		case tiff.FloatVal:
			if v, err := tag.Float(0); err == nil {
				return v
			}
		}
	}
	return tag.String()
}

var _ catalog.Extractor = (*ExifExtractor)(nil)
