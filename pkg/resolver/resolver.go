// Package resolver turns a configuration document and an explicit set of
// external parameters into a fully resolved document: imports inlined,
// parameters substituted and derived arithmetic evaluated.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/samogod/tunecfg/pkg/document"
	"github.com/samogod/tunecfg/pkg/expr"
	"github.com/samogod/tunecfg/pkg/params"

	"github.com/sirupsen/logrus"
)

type Resolver struct {
	source Source
	logger logrus.FieldLogger
}

// New returns a resolver reading documents from source. A nil logger
// discards all output.
func New(source Source, logger logrus.FieldLogger) *Resolver {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Resolver{source: source, logger: logger}
}

// Resolve loads the document at path with its import graph and evaluates it
// against p. The result contains no templates and no reserved keys. Resolution
// reads nothing but the documents themselves, so identical inputs always give
// identical output.
func (r *Resolver) Resolve(path string, p params.Parameters) (document.Document, error) {
	composed, err := r.Compose(path)
	if err != nil {
		return nil, err
	}

	refs, err := references(composed)
	if err != nil {
		return nil, err
	}
	for _, m := range params.Suspicious(refs) {
		r.logger.Warnf("parameter %s is one edit away from %s; each name is resolved on its own", m.Name, m.Similar)
	}

	vars, err := varsOf(composed)
	if err != nil {
		return nil, err
	}

	ev := &evaluator{params: p, vars: vars, cache: map[string]expr.Value{}}
	out, err := ev.resolve(composed)
	if err != nil {
		var missing *expr.MissingParameterError
		if errors.As(err, &missing) && missing.Suggestion == "" {
			if near := params.NearMatches(missing.Name, p.Names()); len(near) > 0 {
				missing.Suggestion = near[0]
			}
		}
		return nil, err
	}

	r.logger.Debugf("resolved %s with %d parameter(s)", path, len(p))
	return out, nil
}

// References lists, sorted, every external parameter the document at path
// reads, including through its imports and variables.
func (r *Resolver) References(path string) ([]string, error) {
	composed, err := r.Compose(path)
	if err != nil {
		return nil, err
	}
	return references(composed)
}

// Compose loads the import graph of path and merges it into one unresolved
// document. Bases are applied in the order listed under $extends and the
// document itself last.
func (r *Resolver) Compose(path string) (document.Document, error) {
	return r.load(path, "", nil)
}

func (r *Resolver) load(name, from string, stack []string) (document.Document, error) {
	for _, s := range stack {
		if s == name {
			chain := append(append([]string{}, stack...), name)
			return nil, &ImportCycleError{Chain: chain}
		}
	}

	data, err := r.source.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ImportNotFoundError{Path: name, From: from}
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	doc, err := document.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	bases, err := extendsOf(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	delete(doc, document.ExtendsKey)

	r.logger.Debugf("loaded %s (%d base fragment(s))", name, len(bases))

	stack = append(append([]string{}, stack...), name)
	merged := document.Document{}
	for _, ref := range bases {
		target, err := joinRef(name, ref)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		base, err := r.load(target, name, stack)
		if err != nil {
			return nil, err
		}
		merged = document.MergeObserved(merged, base, r.overrideLogger(target))
	}

	return document.MergeObserved(merged, doc, r.overrideLogger(name)), nil
}

func (r *Resolver) overrideLogger(source string) func(document.Override) {
	return func(o document.Override) {
		r.logger.Debugf("%s overrides %s: %v -> %v", source, o.Path, o.Old, o.New)
	}
}

func extendsOf(doc document.Document) ([]string, error) {
	raw, ok := doc[document.ExtendsKey]
	if !ok || raw == nil {
		return nil, nil
	}

	switch t := raw.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %s", document.ExtendsKey, document.TypeName(item))
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be a string or a list of strings, got %s", document.ExtendsKey, document.TypeName(raw))
}

func varsOf(doc document.Document) (map[string]any, error) {
	raw, ok := doc[document.VarsKey]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	vars, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %s", document.VarsKey, document.TypeName(raw))
	}
	for name, v := range vars {
		switch v.(type) {
		case map[string]any, []any, nil:
			return nil, fmt.Errorf("%s.%s must be a scalar, got %s", document.VarsKey, name, document.TypeName(v))
		}
	}
	return vars, nil
}
