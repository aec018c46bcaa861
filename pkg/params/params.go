// Package params builds the explicit external parameter sets handed to the
// resolver. Nothing here is consulted implicitly: the process environment is
// only read through FromEnviron, at the command-line boundary.
package params

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/samogod/tunecfg/pkg/document"
	"github.com/samogod/tunecfg/pkg/expr"
)

// Parameters maps external parameter names to their raw string values.
type Parameters map[string]string

func (p Parameters) Lookup(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

func (p Parameters) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Merge layers sets left to right; later sets win.
func Merge(sets ...Parameters) Parameters {
	out := Parameters{}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// ParseAssignments parses KEY=VALUE pairs as given on the command line.
func ParseAssignments(assignments []string) (Parameters, error) {
	out := Parameters{}
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected KEY=VALUE", a)
		}
		out[key] = value
	}
	return out, nil
}

// LoadFile reads a YAML or JSON mapping of parameters. Scalar values are
// converted to their string form; nested values are rejected.
func LoadFile(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}

	doc, err := document.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse params file %s: %w", path, err)
	}

	out := Parameters{}
	for _, k := range doc.Keys() {
		v, err := expr.FromAny(doc[k])
		if err != nil {
			return nil, fmt.Errorf("params file %s: parameter %s must be a scalar", path, k)
		}
		out[k] = v.String()
	}
	return out, nil
}

// FromEnviron picks the named entries out of an environ-style list
// ("KEY=VALUE"). Names absent from environ are skipped.
func FromEnviron(environ []string, names []string) Parameters {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	out := Parameters{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if ok && wanted[key] {
			out[key] = value
		}
	}
	return out
}
