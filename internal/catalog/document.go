package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
)

// Document is the metadata extracted for one content id: a JSON object
// whose values are strings, json.Number, bools, nil, []any or nested
// map[string]any.
type Document map[string]any

var contentIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidateContentID reports whether id is a lowercase hex SHA-256 digest.
func ValidateContentID(id string) error {
	if !contentIDPattern.MatchString(id) {
		return fmt.Errorf("invalid content id %q", id)
	}
	return nil
}

// DecodeDocument parses a JSON object. Numbers are kept as json.Number so
// that a document read back from storage compares equal to the one that
// was written.
func DecodeDocument(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding metadata document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decoding metadata document: not a JSON object")
	}
	return doc, nil
}

// DecodeDocumentBytes is DecodeDocument over a byte slice.
func DecodeDocumentBytes(data []byte) (Document, error) {
	return DecodeDocument(bytes.NewReader(data))
}

// EncodeDocument renders doc as indented JSON with sorted keys, so equal
// documents always encode to identical bytes.
func EncodeDocument(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata document: %w", err)
	}
	return append(data, '\n'), nil
}

// Clone returns a deep copy of doc.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
