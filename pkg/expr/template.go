package expr

import (
	"sort"
	"strings"
	"text/scanner"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Segment is either literal text or a parsed expression.
type Segment struct {
	Literal string
	Expr    Node
}

// Template is a string scalar split into literal and {{ expression }} parts.
type Template struct {
	Source   string
	Segments []Segment
}

// HasTemplate reports whether s contains an expression delimiter.
func HasTemplate(s string) bool {
	return strings.Contains(s, openDelim)
}

func ParseTemplate(s string) (*Template, error) {
	t := &Template{Source: s}
	rest, offset := s, 0

	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			if rest != "" {
				t.Segments = append(t.Segments, Segment{Literal: rest})
			}
			return t, nil
		}
		if start > 0 {
			t.Segments = append(t.Segments, Segment{Literal: rest[:start]})
		}

		body := rest[start+len(openDelim):]
		end := closeIndex(body)
		if end < 0 {
			return nil, &SyntaxError{Source: s, Offset: offset + start, Msg: "unclosed {{"}
		}

		node, err := Parse(body[:end])
		if err != nil {
			if se, ok := err.(*SyntaxError); ok {
				se.Source = s
				se.Offset += offset + start + len(openDelim)
			}
			return nil, err
		}
		t.Segments = append(t.Segments, Segment{Expr: node})

		consumed := start + len(openDelim) + end + len(closeDelim)
		rest = rest[consumed:]
		offset += consumed
	}
}

// closeIndex returns the offset of the first }} in body that is not inside a
// string literal, or -1.
func closeIndex(body string) int {
	var s scanner.Scanner
	s.Init(strings.NewReader(body))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings
	s.Error = func(*scanner.Scanner, string) {}

	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		if tok == '}' && s.Peek() == '}' {
			return s.Position.Offset
		}
	}
	return -1
}

// Eval evaluates the template. A template made of exactly one expression
// keeps the expression's type; anything else is interpolated into a string.
func (t *Template) Eval(scope Scope) (any, error) {
	if len(t.Segments) == 1 && t.Segments[0].Expr != nil {
		v, err := Eval(t.Segments[0].Expr, scope)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}

	var b strings.Builder
	for _, seg := range t.Segments {
		if seg.Expr == nil {
			b.WriteString(seg.Literal)
			continue
		}
		v, err := Eval(seg.Expr, scope)
		if err != nil {
			return nil, err
		}
		b.WriteString(v.String())
	}
	return b.String(), nil
}

// Refs returns the sorted, de-duplicated parameter and variable names the
// template reads.
func (t *Template) Refs() (params, vars []string) {
	ps, vs := map[string]struct{}{}, map[string]struct{}{}
	for _, seg := range t.Segments {
		Walk(seg.Expr, func(n Node) {
			switch r := n.(type) {
			case *ParamRef:
				ps[r.Name] = struct{}{}
			case *VarRef:
				vs[r.Name] = struct{}{}
			}
		})
	}
	return setToSorted(ps), setToSorted(vs)
}

func setToSorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
