package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type builtin struct {
	minArgs, maxArgs int // maxArgs < 0 means variadic
	fn               func(n *Call, args []Value) (Value, error)
}

var builtins = map[string]builtin{
	"int":   {1, 1, toInt},
	"float": {1, 1, toFloatValue},
	"str":   {1, 1, func(_ *Call, args []Value) (Value, error) { return StringValue(args[0].String()), nil }},
	"bool":  {1, 1, toBool},
	"min":   {1, -1, extremum(func(a, b float64) bool { return a < b })},
	"max":   {1, -1, extremum(func(a, b float64) bool { return a > b })},
	"ceil":  {1, 1, rounding(math.Ceil)},
	"floor": {1, 1, rounding(math.Floor)},
}

func call(n *Call, args []Value) (Value, error) {
	b := builtins[n.Func]
	if len(args) < b.minArgs || (b.maxArgs >= 0 && len(args) > b.maxArgs) {
		return Value{}, &TypeError{Expr: n.String(), Msg: fmt.Sprintf("wrong number of arguments: %d", len(args))}
	}
	return b.fn(n, args)
}

func malformed(n *Call, v Value, kind string) error {
	if v.Param != "" {
		return &MalformedParameterError{Name: v.Param, Value: v.String(), Kind: kind}
	}
	return &TypeError{Expr: n.String(), Msg: fmt.Sprintf("%q is not a valid %s", v.String(), kind)}
}

func toInt(n *Call, args []Value) (Value, error) {
	v := args[0]
	switch t := v.v.(type) {
	case int64:
		return IntValue(t), nil
	case float64:
		return floatToInt(n, math.Trunc(t))
	case bool:
		if t {
			return IntValue(1), nil
		}
		return IntValue(0), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return Value{}, malformed(n, v, "integer")
		}
		return IntValue(i), nil
	}
	return Value{}, typeMismatch(n, v)
}

func toFloatValue(n *Call, args []Value) (Value, error) {
	v := args[0]
	switch t := v.v.(type) {
	case int64:
		return FloatValue(float64(t)), nil
	case float64:
		return FloatValue(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Value{}, malformed(n, v, "number")
		}
		return FloatValue(f), nil
	}
	return Value{}, typeMismatch(n, v)
}

func toBool(n *Call, args []Value) (Value, error) {
	v := args[0]
	switch t := v.v.(type) {
	case bool:
		return BoolValue(t), nil
	case int64:
		return BoolValue(t != 0), nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return Value{}, malformed(n, v, "boolean")
		}
		return BoolValue(b), nil
	}
	return Value{}, typeMismatch(n, v)
}

func extremum(better func(a, b float64) bool) func(*Call, []Value) (Value, error) {
	return func(n *Call, args []Value) (Value, error) {
		best := args[0]
		bestF, ok := toFloat(best.v)
		if !ok {
			return Value{}, typeMismatch(n, best)
		}
		for _, a := range args[1:] {
			f, ok := toFloat(a.v)
			if !ok {
				return Value{}, typeMismatch(n, a)
			}
			if better(f, bestF) {
				best, bestF = a, f
			}
		}
		return best, nil
	}
}

func rounding(fn func(float64) float64) func(*Call, []Value) (Value, error) {
	return func(n *Call, args []Value) (Value, error) {
		switch t := args[0].v.(type) {
		case int64:
			return IntValue(t), nil
		case float64:
			return floatToInt(n, fn(t))
		}
		return Value{}, typeMismatch(n, args[0])
	}
}
