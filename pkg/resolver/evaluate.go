package resolver

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/samogod/tunecfg/pkg/document"
	"github.com/samogod/tunecfg/pkg/expr"
	"github.com/samogod/tunecfg/pkg/params"
)

// evaluator is the expr.Scope for one resolution pass. Variables are
// evaluated on first use and memoized.
type evaluator struct {
	params params.Parameters
	vars   map[string]any
	cache  map[string]expr.Value
	active []string
}

func (e *evaluator) Param(name string) (string, bool) {
	return e.params.Lookup(name)
}

func (e *evaluator) Var(name string) (expr.Value, error) {
	if v, ok := e.cache[name]; ok {
		return v, nil
	}
	for i, a := range e.active {
		if a == name {
			chain := append(append([]string{}, e.active[i:]...), name)
			return expr.Value{}, &expr.VariableCycleError{Chain: chain}
		}
	}

	raw, ok := e.vars[name]
	if !ok {
		return expr.Value{}, &expr.UnknownVariableError{Name: name}
	}

	e.active = append(e.active, name)
	defer func() { e.active = e.active[:len(e.active)-1] }()

	resolved, err := e.scalar(raw)
	if err != nil {
		return expr.Value{}, fmt.Errorf("%s.%s: %w", document.VarsKey, name, err)
	}
	v, err := expr.FromAny(resolved)
	if err != nil {
		return expr.Value{}, fmt.Errorf("%s.%s: %w", document.VarsKey, name, err)
	}

	e.cache[name] = v
	return v, nil
}

func (e *evaluator) scalar(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok || !expr.HasTemplate(s) {
		return raw, nil
	}
	tpl, err := expr.ParseTemplate(s)
	if err != nil {
		return nil, err
	}
	return tpl.Eval(e)
}

// resolve evaluates every variable, then every value of doc, both in sorted
// key order so the first reported error does not depend on map iteration.
func (e *evaluator) resolve(doc document.Document) (document.Document, error) {
	for _, name := range document.SortedKeys(e.vars) {
		if _, err := e.Var(name); err != nil {
			return nil, err
		}
	}

	out := document.Document{}
	for _, k := range doc.Keys() {
		if k == document.VarsKey || k == document.ExtendsKey {
			continue
		}
		v, err := e.value(k, doc[k])
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (e *evaluator) value(path string, v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range document.SortedKeys(t) {
			rv, err := e.value(path+"."+k, t[k])
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil

	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			rv, err := e.value(path+"."+strconv.Itoa(i), item)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil

	case string:
		rv, err := e.scalar(t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return rv, nil
	}
	return v, nil
}

// references collects the parameter names read by every template in doc.
func references(doc document.Document) ([]string, error) {
	seen := map[string]struct{}{}
	var walk func(path string, v any) error
	walk = func(path string, v any) error {
		switch t := v.(type) {
		case map[string]any:
			for _, k := range document.SortedKeys(t) {
				if err := walk(path+"."+k, t[k]); err != nil {
					return err
				}
			}
		case []any:
			for i, item := range t {
				if err := walk(path+"."+strconv.Itoa(i), item); err != nil {
					return err
				}
			}
		case string:
			if !expr.HasTemplate(t) {
				return nil
			}
			tpl, err := expr.ParseTemplate(t)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			names, _ := tpl.Refs()
			for _, n := range names {
				seen[n] = struct{}{}
			}
		}
		return nil
	}

	for _, k := range doc.Keys() {
		if err := walk(k, doc[k]); err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}
