package normalize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"photocat/internal/catalog"
)

// Rule file names looked up in the data folder, in order.
var RuleFileNames = []string{"mapping.toml", "mapping.yaml", "mapping.yml"}

// MappingRule rewrites any of MatchValues of Variable to AssignValue.
type MappingRule struct {
	Variable    string `toml:"variable" yaml:"variable"`
	MatchValues []any  `toml:"match_values" yaml:"match_values"`
	AssignValue string `toml:"assign_value" yaml:"assign_value"`
}

type rulesFile struct {
	Mapping []MappingRule `toml:"mapping" yaml:"mapping"`
}

// Rules is an immutable, validated set of mapping rules indexed by
// variable and string-coerced match value.
type Rules struct {
	byVariable map[string]map[string]string
	count      int
}

// NewRules validates rules and indexes them. A value listed by two rules
// for the same variable is a configuration error, whatever the assigned
// values are.
func NewRules(rules []MappingRule) (*Rules, error) {
	r := &Rules{byVariable: make(map[string]map[string]string)}
	owner := make(map[string]map[string]int)
	for i, rule := range rules {
		if strings.TrimSpace(rule.Variable) == "" {
			return nil, catalog.Configf("mapping rule %d: variable is empty", i+1)
		}
		if len(rule.MatchValues) == 0 {
			return nil, catalog.Configf("mapping rule %d (%s): match_values is empty", i+1, rule.Variable)
		}
		values, ok := r.byVariable[rule.Variable]
		if !ok {
			values = make(map[string]string)
			r.byVariable[rule.Variable] = values
			owner[rule.Variable] = make(map[string]int)
		}
		for _, raw := range rule.MatchValues {
			key := FormatValue(raw)
			if prev, ok := owner[rule.Variable][key]; ok && prev != i {
				return nil, catalog.Configf("mapping rules %d and %d both match %s = %q", prev+1, i+1, rule.Variable, key)
			}
			owner[rule.Variable][key] = i
			values[key] = rule.AssignValue
		}
		r.count++
	}
	return r, nil
}

// Lookup returns the value assigned to value of variable, if any rule
// matches it.
func (r *Rules) Lookup(variable, value string) (string, bool) {
	if r == nil {
		return "", false
	}
	assigned, ok := r.byVariable[variable][value]
	return assigned, ok
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return r.count
}

// Variables returns the variables that have rules, sorted.
func (r *Rules) Variables() []string {
	if r == nil {
		return nil
	}
	vars := make([]string, 0, len(r.byVariable))
	for v := range r.byVariable {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// ParseTOML parses a mapping file made of [[mapping]] tables.
func ParseTOML(data []byte) (*Rules, error) {
	var f rulesFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, catalog.Configf("parsing mapping rules: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, catalog.Configf("parsing mapping rules: unknown keys %v", undecoded)
	}
	return NewRules(f.Mapping)
}

// ParseYAML parses a mapping file with a top-level "mapping" list.
func ParseYAML(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, catalog.Configf("parsing mapping rules: %v", err)
	}
	return NewRules(f.Mapping)
}

// LoadRules reads the first rules file found in dataDir. No file means no
// rules.
func LoadRules(dataDir string) (*Rules, error) {
	for _, name := range RuleFileNames {
		path := filepath.Join(dataDir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var rules *Rules
		if filepath.Ext(name) == ".toml" {
			rules, err = ParseTOML(data)
		} else {
			rules, err = ParseYAML(data)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return rules, nil
	}
	return &Rules{}, nil
}
