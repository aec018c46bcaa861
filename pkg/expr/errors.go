package expr

import "fmt"

// MissingParameterError is returned when a template references an external
// parameter that was not supplied.
type MissingParameterError struct {
	Name string
	// Suggestion is a supplied parameter whose name is one edit away from
	// Name. It is informational only and never substituted.
	Suggestion string
}

func (e *MissingParameterError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("missing parameter %q (a parameter named %q was supplied; possible misspelling)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("missing parameter %q", e.Name)
}

// MalformedParameterError is returned when a parameter value cannot be
// converted to the type an expression asks for.
type MalformedParameterError struct {
	Name  string
	Value string
	Kind  string
}

func (e *MalformedParameterError) Error() string {
	return fmt.Sprintf("malformed parameter %q: %q is not a valid %s", e.Name, e.Value, e.Kind)
}

type DivisionByZeroError struct {
	Expr string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero in %s", e.Expr)
}

type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

type VariableCycleError struct {
	Chain []string
}

func (e *VariableCycleError) Error() string {
	return fmt.Sprintf("variable cycle: %v", e.Chain)
}

type SyntaxError struct {
	Source string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d in %q: %s", e.Offset, e.Source, e.Msg)
}

// TypeError reports an operator or function applied to unsuitable operands.
type TypeError struct {
	Expr string
	Msg  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Expr, e.Msg)
}
