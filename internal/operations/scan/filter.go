package scan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Filter is an allow-list of binary names. Every entry implicitly covers
// its ".exe" alias, so a filter listing "clang" matches both "clang" and
// "clang.exe". A nil or empty filter accepts everything. Immutable after
// construction.
type Filter struct {
	names map[string]struct{}
}

// NewFilter builds a filter from a list of names, adding the ".exe" alias
// of every entry.
func NewFilter(names []string) *Filter {
	set := make(map[string]struct{})
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
		if !strings.HasSuffix(name, ".exe") {
			set[name+".exe"] = struct{}{}
		}
	}
	return &Filter{names: set}
}

// LoadFilterFile reads binary names from a file. Files ending in .yaml or
// .yml hold a YAML string list; anything else is plain lines, with blank
// lines and "#" comments skipped.
func LoadFilterFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binaries file: %w", err)
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		var names []string
		if err := yaml.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("failed to parse binaries file %s: %w", path, err)
		}
		return names, nil
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

// Empty reports whether the filter accepts everything
func (f *Filter) Empty() bool {
	return f == nil || len(f.names) == 0
}

// Match reports whether a binary name is accepted. Matching is
// platform-suffix-insensitive: "foo", "foo.exe" and a filter entry for
// either all line up.
func (f *Filter) Match(name string) bool {
	if f.Empty() {
		return true
	}

	if _, ok := f.names[name]; ok {
		return true
	}
	if strings.HasSuffix(name, ".exe") {
		_, ok := f.names[strings.TrimSuffix(name, ".exe")]
		return ok
	}
	_, ok := f.names[name+".exe"]
	return ok
}

// Requested returns the configured names without their ".exe" aliases,
// sorted, for reporting.
func (f *Filter) Requested() []string {
	if f.Empty() {
		return nil
	}

	var names []string
	for name := range f.names {
		if strings.HasSuffix(name, ".exe") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the requested names with no match among found, sorted.
// found holds binary names as discovered, with or without ".exe".
func (f *Filter) Missing(found []string) []string {
	if f.Empty() {
		return nil
	}

	present := make(map[string]struct{}, len(found))
	for _, name := range found {
		present[strings.TrimSuffix(name, ".exe")] = struct{}{}
	}

	var missing []string
	for _, name := range f.Requested() {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
