package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"photocat/internal/catalog"
)

// ErrNoOutput is returned when an extractor produced nothing to parse.
var ErrNoOutput = errors.New("extractor produced no output")

// ParseOutput turns extractor stdout into a Document. A top-level array
// holding a single element is unwrapped (exiftool emits [{...}]); any
// other non-object value is stored under "data". The SourceFile key that
// exiftool adds for stdin input is dropped.
func ParseOutput(out []byte) (catalog.Document, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, ErrNoOutput
	}

	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parsing extractor output: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parsing extractor output: trailing data after JSON value")
	}

	for {
		arr, ok := v.([]any)
		if !ok || len(arr) != 1 {
			break
		}
		v = arr[0]
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return catalog.Document{"data": v}, nil
	}
	delete(obj, "SourceFile")
	return catalog.Document(obj), nil
}
