package sidecar

import (
	"reflect"

	"photocat/internal/catalog"
)

// Merge returns base with update merged in. Objects present on both sides
// are merged recursively; any other value from update replaces the one in
// base. Neither argument is modified.
func Merge(base, update catalog.Document) catalog.Document {
	out := base.Clone()
	if out == nil {
		out = catalog.Document{}
	}
	for k, v := range update {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(old, update any) any {
	om, ok := asObject(old)
	if !ok {
		return cloneAny(update)
	}
	um, ok := asObject(update)
	if !ok {
		return cloneAny(update)
	}
	for k, v := range um {
		om[k] = mergeValue(om[k], v)
	}
	return om
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case catalog.Document:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

func cloneAny(v any) any {
	return catalog.Document{"v": v}.Clone()["v"]
}

// plan decides the document to store for a write and what the write
// amounts to. existing is ignored unless found is true.
func plan(existing catalog.Document, found bool, doc catalog.Document, mode catalog.MergeMode) (catalog.Document, catalog.WriteResult) {
	if !found {
		return doc, catalog.WriteCreated
	}

	next := doc
	result := catalog.WriteReplaced
	if mode == catalog.MergeFields {
		next = Merge(existing, doc)
		result = catalog.WriteMerged
	}

	if equalDocuments(existing, next) {
		return existing, catalog.WriteUnchanged
	}
	return next, result
}

// equalDocuments compares two documents through their canonical encoding,
// so a document built in memory equals the same document read from disk.
func equalDocuments(a, b catalog.Document) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ea, err := catalog.EncodeDocument(a)
	if err != nil {
		return false
	}
	eb, err := catalog.EncodeDocument(b)
	if err != nil {
		return false
	}
	return string(ea) == string(eb)
}
