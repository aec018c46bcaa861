// Package expr parses and evaluates the small arithmetic language used inside
// {{ ... }} templates of configuration documents.
package expr

import (
	"strconv"
	"strings"
)

// Node is a parsed expression.
type Node interface {
	String() string
}

type Literal struct {
	Val any // int64, float64, string or bool
}

// ParamRef reads an external parameter: $NAME.
type ParamRef struct {
	Name string
}

// VarRef reads a document variable declared under $vars.
type VarRef struct {
	Name string
}

type Unary struct {
	Op string
	X  Node
}

type Binary struct {
	Op   string
	X, Y Node
}

type Call struct {
	Func string
	Args []Node
}

func (n *Literal) String() string {
	switch v := n.Val.(type) {
	case string:
		return strconv.Quote(v)
	default:
		return formatScalar(v)
	}
}

func (n *ParamRef) String() string { return "$" + n.Name }

func (n *VarRef) String() string { return n.Name }

func (n *Unary) String() string { return n.Op + n.X.String() }

func (n *Binary) String() string {
	return "(" + n.X.String() + " " + n.Op + " " + n.Y.String() + ")"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func + "(" + strings.Join(args, ", ") + ")"
}

// Walk calls fn for n and every node below it, depth first.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *Unary:
		Walk(t.X, fn)
	case *Binary:
		Walk(t.X, fn)
		Walk(t.Y, fn)
	case *Call:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	}
}
