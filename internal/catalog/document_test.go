package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocumentBytes([]byte(`{"ISO": 200, "FNumber": 2.80, "Lens": "X", "Flash": null, "GPS": {"Lat": 1}}`))
	if err != nil {
		t.Fatalf("DecodeDocumentBytes() error = %v", err)
	}
	want := Document{
		"ISO":     json.Number("200"),
		"FNumber": json.Number("2.80"),
		"Lens":    "X",
		"Flash":   nil,
		"GPS":     map[string]any{"Lat": json.Number("1")},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{`[1]`, `null`, `"x"`, `{`} {
		if _, err := DecodeDocumentBytes([]byte(bad)); err == nil {
			t.Errorf("DecodeDocumentBytes(%s) expected error", bad)
		}
	}
}

func TestEncodeDocument_canonical(t *testing.T) {
	a := Document{"b": 1, "a": []any{"x"}}
	b := Document{"a": []any{"x"}, "b": json.Number("1")}

	ea, err := EncodeDocument(a)
	if err != nil {
		t.Fatal(err)
	}
	eb, err := EncodeDocument(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ea) != string(eb) {
		t.Errorf("encodings differ:\n%s\n%s", ea, eb)
	}
	if !strings.HasPrefix(string(ea), "{\n  \"a\"") || !strings.HasSuffix(string(ea), "}\n") {
		t.Errorf("unexpected layout:\n%s", ea)
	}
}

func TestDocument_Clone(t *testing.T) {
	orig := Document{"GPS": map[string]any{"Lat": 1}, "Tags": []any{"a"}}
	c := orig.Clone()
	c["GPS"].(map[string]any)["Lat"] = 2
	c["Tags"].([]any)[0] = "b"

	if orig["GPS"].(map[string]any)["Lat"] != 1 || orig["Tags"].([]any)[0] != "a" {
		t.Errorf("Clone() shares nested values: %v", orig)
	}
	if Document(nil).Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestValidateContentID(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	if err := ValidateContentID(valid); err != nil {
		t.Errorf("ValidateContentID(valid) error = %v", err)
	}
	for _, id := range []string{"", "abc", strings.Repeat("AB", 32), "../" + valid[3:]} {
		if err := ValidateContentID(id); err == nil {
			t.Errorf("ValidateContentID(%q) expected error", id)
		}
	}
}
