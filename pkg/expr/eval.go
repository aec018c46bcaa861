package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is the result of evaluating an expression. Param records the external
// parameter a string value was read from, so conversions can name it.
type Value struct {
	v     any
	Param string
}

func IntValue(i int64) Value { return Value{v: i} }
func FloatValue(f float64) Value { return Value{v: f} }
func StringValue(s string) Value { return Value{v: s} }
func BoolValue(b bool) Value { return Value{v: b} }
func paramValue(name, s string) Value { return Value{v: s, Param: name} }

// FromAny wraps a normalized document scalar.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case int64:
		return IntValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case float64:
		return FloatValue(t), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	default:
		return Value{}, fmt.Errorf("value of type %T cannot be used in an expression", x)
	}
}

// Interface returns the underlying int64, float64, string or bool.
func (v Value) Interface() any { return v.v }

func (v Value) String() string { return formatScalar(v.v) }

// Scope supplies external parameters and document variables.
type Scope interface {
	Param(name string) (string, bool)
	Var(name string) (Value, error)
}

// Eval evaluates n against scope.
func Eval(n Node, scope Scope) (Value, error) {
	switch t := n.(type) {
	case *Literal:
		return Value{v: t.Val}, nil

	case *ParamRef:
		s, ok := scope.Param(t.Name)
		if !ok {
			return Value{}, &MissingParameterError{Name: t.Name}
		}
		return paramValue(t.Name, s), nil

	case *VarRef:
		return scope.Var(t.Name)

	case *Unary:
		x, err := Eval(t.X, scope)
		if err != nil {
			return Value{}, err
		}
		switch xv := x.v.(type) {
		case int64:
			if xv == math.MinInt64 {
				return Value{}, overflow(t)
			}
			return IntValue(-xv), nil
		case float64:
			return FloatValue(-xv), nil
		}
		return Value{}, typeMismatch(t, x)

	case *Binary:
		x, err := Eval(t.X, scope)
		if err != nil {
			return Value{}, err
		}
		y, err := Eval(t.Y, scope)
		if err != nil {
			return Value{}, err
		}
		return binary(t, x, y)

	case *Call:
		args := make([]Value, 0, len(t.Args))
		for _, a := range t.Args {
			v, err := Eval(a, scope)
			if err != nil {
				return Value{}, err
			}
			args = append(args, v)
		}
		return call(t, args)
	}

	return Value{}, fmt.Errorf("unsupported expression %T", n)
}

func typeMismatch(n Node, operands ...Value) error {
	var kinds []string
	for _, o := range operands {
		k := kindOf(o.v)
		if o.Param != "" {
			k += fmt.Sprintf(" (parameter %s; convert it with int() or float())", o.Param)
		}
		kinds = append(kinds, k)
	}
	return &TypeError{Expr: n.String(), Msg: "unsupported operand types " + strings.Join(kinds, ", ")}
}

func binary(n *Binary, x, y Value) (Value, error) {
	if xs, ok := x.v.(string); ok {
		if ys, ok := y.v.(string); ok && n.Op == "+" {
			return StringValue(xs + ys), nil
		}
		return Value{}, typeMismatch(n, x, y)
	}

	xi, xInt := x.v.(int64)
	yi, yInt := y.v.(int64)
	if xInt && yInt {
		return intBinary(n, xi, yi)
	}

	xf, ok := toFloat(x.v)
	if !ok {
		return Value{}, typeMismatch(n, x, y)
	}
	yf, ok := toFloat(y.v)
	if !ok {
		return Value{}, typeMismatch(n, x, y)
	}
	return floatBinary(n, xf, yf)
}

// intBinary follows floor division: x == (x // y)*y + x % y holds for every
// sign combination. Results outside int64 are errors, never wrapped.
func intBinary(n *Binary, x, y int64) (Value, error) {
	switch n.Op {
	case "+":
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			return Value{}, overflow(n)
		}
		return IntValue(r), nil
	case "-":
		r := x - y
		if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
			return Value{}, overflow(n)
		}
		return IntValue(r), nil
	case "*":
		r := x * y
		if x != 0 && (r/x != y || (x == -1 && y == math.MinInt64)) {
			return Value{}, overflow(n)
		}
		return IntValue(r), nil
	}

	if y == 0 {
		return Value{}, &DivisionByZeroError{Expr: n.String()}
	}
	if x == math.MinInt64 && y == -1 && n.Op != "%" {
		return Value{}, overflow(n)
	}

	switch n.Op {
	case "/":
		if x%y == 0 {
			return IntValue(x / y), nil
		}
		return FloatValue(float64(x) / float64(y)), nil
	case "//":
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return IntValue(q), nil
	case "%":
		r := x % y
		if r != 0 && ((r < 0) != (y < 0)) {
			r += y
		}
		return IntValue(r), nil
	}
	return Value{}, fmt.Errorf("unknown operator %s", n.Op)
}

func overflow(n Node) error {
	return &TypeError{Expr: n.String(), Msg: "integer overflow"}
}

// floatToInt converts f, already rounded as wanted, to an integer value.
// math.MaxInt64 rounds up to 2^63 as a float64, hence >=.
func floatToInt(n Node, f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, &TypeError{Expr: n.String(), Msg: "result is not a finite number"}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return Value{}, overflow(n)
	}
	return IntValue(int64(f)), nil
}

func floatBinary(n *Binary, x, y float64) (Value, error) {
	var r float64
	switch n.Op {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "/", "//", "%":
		if y == 0 {
			return Value{}, &DivisionByZeroError{Expr: n.String()}
		}
		switch n.Op {
		case "/":
			r = x / y
		case "//":
			r = math.Floor(x / y)
		default:
			r = math.Mod(x, y)
			if r != 0 && ((r < 0) != (y < 0)) {
				r += y
			}
		}
	default:
		return Value{}, fmt.Errorf("unknown operator %s", n.Op)
	}

	if math.IsInf(r, 0) || math.IsNaN(r) {
		return Value{}, &TypeError{Expr: n.String(), Msg: "result is not a finite number"}
	}
	return FloatValue(r), nil
}

func toFloat(x any) (float64, bool) {
	switch t := x.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func kindOf(x any) string {
	switch x.(type) {
	case int64:
		return "integer"
	case float64:
		return "float"
	case string:
		return "string"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", x)
}

func formatScalar(x any) string {
	switch t := x.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	}
	return fmt.Sprint(x)
}
