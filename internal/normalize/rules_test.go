package normalize

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"photocat/internal/catalog"
)

const testTOML = `
[[mapping]]
variable = "Lens"
match_values = ["15 mm f/4.5", "15.0 mm f/4.5"]
assign_value = "15mm f/4.5"

[[mapping]]
variable = "FNumber"
match_values = [2.8, 3]
assign_value = "wide"
`

const testYAML = `
mapping:
  - variable: Lens
    match_values: ["15 mm f/4.5"]
    assign_value: 15mm f/4.5
  - variable: ISO
    match_values: [100, 200]
    assign_value: base
`

func TestParseTOML(t *testing.T) {
	rules, err := ParseTOML([]byte(testTOML))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}
	if rules.Len() != 2 {
		t.Errorf("Len() = %d, want 2", rules.Len())
	}
	if diff := cmp.Diff([]string{"FNumber", "Lens"}, rules.Variables()); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		variable, value string
		want            string
		wantOK          bool
	}{
		{"Lens", "15 mm f/4.5", "15mm f/4.5", true},
		{"Lens", "15.0 mm f/4.5", "15mm f/4.5", true},
		{"Lens", "50mm", "", false},
		{"Model", "15 mm f/4.5", "", false},
		{"FNumber", "2.8", "wide", true},
		{"FNumber", "3", "wide", true},
	}
	for _, tt := range tests {
		got, ok := rules.Lookup(tt.variable, tt.value)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%q, %q) = %q, %v, want %q, %v", tt.variable, tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseYAML(t *testing.T) {
	rules, err := ParseYAML([]byte(testYAML))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if got, ok := rules.Lookup("ISO", "200"); !ok || got != "base" {
		t.Errorf("Lookup(ISO, 200) = %q, %v", got, ok)
	}
	if got, ok := rules.Lookup("Lens", "15 mm f/4.5"); !ok || got != "15mm f/4.5" {
		t.Errorf("Lookup(Lens) = %q, %v", got, ok)
	}
}

func TestNewRules_configErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules []MappingRule
	}{
		{
			name:  "empty variable",
			rules: []MappingRule{{Variable: " ", MatchValues: []any{"a"}, AssignValue: "b"}},
		},
		{
			name:  "no match values",
			rules: []MappingRule{{Variable: "Lens", AssignValue: "b"}},
		},
		{
			name: "overlapping match sets",
			rules: []MappingRule{
				{Variable: "Lens", MatchValues: []any{"a", "b"}, AssignValue: "x"},
				{Variable: "Lens", MatchValues: []any{"c", "b"}, AssignValue: "y"},
			},
		},
		{
			name: "overlap after string coercion",
			rules: []MappingRule{
				{Variable: "ISO", MatchValues: []any{int64(100)}, AssignValue: "x"},
				{Variable: "ISO", MatchValues: []any{"100"}, AssignValue: "x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRules(tt.rules)
			if !errors.Is(err, catalog.ErrConfig) {
				t.Errorf("NewRules() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestNewRules_sameValueDifferentVariables(t *testing.T) {
	_, err := NewRules([]MappingRule{
		{Variable: "Lens", MatchValues: []any{"a"}, AssignValue: "x"},
		{Variable: "Model", MatchValues: []any{"a"}, AssignValue: "y"},
	})
	if err != nil {
		t.Errorf("NewRules() error = %v", err)
	}
}

func TestParseTOML_malformed(t *testing.T) {
	tests := map[string]string{
		"syntax":      "[[mapping]\nvariable = ",
		"unknown key": "[[mapping]]\nvariable = \"Lens\"\nmatch_values = [\"a\"]\nassign = \"b\"\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTOML([]byte(input)); !errors.Is(err, catalog.ErrConfig) {
				t.Errorf("ParseTOML() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("no file means no rules", func(t *testing.T) {
		rules, err := LoadRules(t.TempDir())
		if err != nil {
			t.Fatalf("LoadRules() error = %v", err)
		}
		if rules.Len() != 0 {
			t.Errorf("Len() = %d, want 0", rules.Len())
		}
	})

	t.Run("toml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "mapping.toml"), []byte(testTOML), 0644); err != nil {
			t.Fatal(err)
		}
		rules, err := LoadRules(dir)
		if err != nil {
			t.Fatalf("LoadRules() error = %v", err)
		}
		if rules.Len() != 2 {
			t.Errorf("Len() = %d, want 2", rules.Len())
		}
	})

	t.Run("yml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "mapping.yml"), []byte(testYAML), 0644); err != nil {
			t.Fatal(err)
		}
		rules, err := LoadRules(dir)
		if err != nil {
			t.Fatalf("LoadRules() error = %v", err)
		}
		if rules.Len() != 2 {
			t.Errorf("Len() = %d, want 2", rules.Len())
		}
	})

	t.Run("malformed file is a config error", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "mapping.yaml"), []byte("mapping: [\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRules(dir); !errors.Is(err, catalog.ErrConfig) {
			t.Errorf("LoadRules() error = %v, want ErrConfig", err)
		}
	})
}

func TestRules_nil(t *testing.T) {
	var rules *Rules
	if _, ok := rules.Lookup("Lens", "a"); ok {
		t.Error("nil Rules matched")
	}
	if rules.Len() != 0 {
		t.Error("nil Rules has length")
	}
}
