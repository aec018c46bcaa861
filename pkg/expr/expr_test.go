package expr

import (
	"errors"
	"testing"
)

type mapScope struct {
	params map[string]string
	vars   map[string]Value
}

func (s mapScope) Param(name string) (string, bool) {
	v, ok := s.params[name]
	return v, ok
}

func (s mapScope) Var(name string) (Value, error) {
	v, ok := s.vars[name]
	if !ok {
		return Value{}, &UnknownVariableError{Name: name}
	}
	return v, nil
}

func evalString(t *testing.T, src string, scope Scope) (any, error) {
	t.Helper()
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	v, err := Eval(n, scope)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func TestEval_Arithmetic(t *testing.T) {
	scope := mapScope{
		params: map[string]string{"TOTAL_STEPS": "1000", "NUM_STEPS_PER_EPOCH": "250", "LR": "2e-5"},
		vars:   map[string]Value{"num_epochs": IntValue(4)},
	}

	tests := []struct {
		src  string
		want any
	}{
		{"int($TOTAL_STEPS) / 10", int64(100)},
		{"int($NUM_STEPS_PER_EPOCH) * num_epochs / 10", int64(100)},
		{"7 / 2", 3.5},
		{"7 // 2", int64(3)},
		{"-7 // 2", int64(-4)},
		{"7 % 3", int64(1)},
		{"1 + 2 * 3", int64(7)},
		{"(1 + 2) * 3", int64(9)},
		{"-(2 + 3)", int64(-5)},
		{"2.5 * 2", 5.0},
		{"float($LR) * 2", 4e-5},
		{"ceil(7 / 2)", int64(4)},
		{"floor(7 / 2)", int64(3)},
		{"min(3, 1, 2)", int64(1)},
		{"max(3, 1.5)", int64(3)},
		{`"roberta" + "-" + "base"`, "roberta-base"},
		{`str(num_epochs) + "x"`, "4x"},
		{"bool(\"true\")", true},
		{"true", true},
		{"0x10", int64(16)},
		{"-7 % 2", int64(1)},
		{"7 % -2", int64(-1)},
		{"-7 % -2", int64(-1)},
		{"(-7 // 2) * 2 + -7 % 2", int64(-7)},
		{"(7 // -2) * -2 + 7 % -2", int64(7)},
		{"-7.5 % 2", 0.5},
		{"int(2.9)", int64(2)},
		{"int(-2.9)", int64(-2)},
		{"int($TOTAL_STEPS) * 9223372036854 // 9223372036854", int64(1000)},
		{"9223372036854775806 + 1", int64(9223372036854775807)},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := evalString(t, tt.src, scope)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEval_DivisionByZero(t *testing.T) {
	scope := mapScope{params: map[string]string{"NUM_STEPS_PER_EPOCH": "0"}}

	for _, src := range []string{
		"100 / int($NUM_STEPS_PER_EPOCH)",
		"100 // 0",
		"100 % 0",
		"1.5 / 0",
		"1.5 / float($NUM_STEPS_PER_EPOCH)",
	} {
		_, err := evalString(t, src, scope)
		var dz *DivisionByZeroError
		if !errors.As(err, &dz) {
			t.Errorf("%s: expected DivisionByZeroError, got %v", src, err)
		}
	}
}

func TestEval_IntegerOverflow(t *testing.T) {
	scope := mapScope{params: map[string]string{"TOTAL_STEPS": "9223372036854775807"}}

	for _, src := range []string{
		"int($TOTAL_STEPS) * 10",
		"int($TOTAL_STEPS) + 1",
		"-int($TOTAL_STEPS) - 2",
		"-(-int($TOTAL_STEPS) - 1)",
		"(-int($TOTAL_STEPS) - 1) // -1",
		"(-int($TOTAL_STEPS) - 1) * -1",
		"-1 * (-int($TOTAL_STEPS) - 1)",
		"int(1e300)",
		"int(9223372036854775807.0)",
		"ceil(1e19)",
		"floor(-1e19)",
	} {
		_, err := evalString(t, src, scope)
		var te *TypeError
		if !errors.As(err, &te) || te.Msg != "integer overflow" {
			t.Errorf("%s: expected integer overflow, got %v", src, err)
		}
	}
}

func TestEval_MissingParameter(t *testing.T) {
	_, err := evalString(t, "int($SEED) + 1", mapScope{})

	var mp *MissingParameterError
	if !errors.As(err, &mp) {
		t.Fatalf("expected MissingParameterError, got %v", err)
	}
	if mp.Name != "SEED" {
		t.Errorf("expected SEED, got %s", mp.Name)
	}
}

func TestEval_MalformedParameter(t *testing.T) {
	scope := mapScope{params: map[string]string{"BATCH_SIZE": "sixteen", "LR": "fast", "FLAG": "maybe"}}

	cases := map[string]string{
		"int($BATCH_SIZE)": "BATCH_SIZE",
		"float($LR)":       "LR",
		"bool($FLAG)":      "FLAG",
	}
	for src, name := range cases {
		_, err := evalString(t, src, scope)
		var mp *MalformedParameterError
		if !errors.As(err, &mp) {
			t.Errorf("%s: expected MalformedParameterError, got %v", src, err)
			continue
		}
		if mp.Name != name {
			t.Errorf("%s: expected name %s, got %s", src, name, mp.Name)
		}
		if mp.Value != scope.params[name] {
			t.Errorf("%s: expected value %q, got %q", src, scope.params[name], mp.Value)
		}
	}
}

func TestEval_TypeErrors(t *testing.T) {
	scope := mapScope{params: map[string]string{"SEED": "1"}}

	for _, src := range []string{`$SEED * 2`, `"a" - "b"`, `true + 1`, `-"x"`, `int(1, 2)`} {
		_, err := evalString(t, src, scope)
		var te *TypeError
		if !errors.As(err, &te) {
			t.Errorf("%s: expected TypeError, got %v", src, err)
		}
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1 + 2", "foo(1)", "$", "1 2", "int(1,", `"unterminated`} {
		_, err := Parse(src)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: expected SyntaxError, got %v", src, err)
		}
	}
}

func TestTemplate_TypedAndInterpolated(t *testing.T) {
	scope := mapScope{params: map[string]string{"BATCH_SIZE": "16", "TRANSFORMERS_MODEL_NAME": "roberta-base"}}

	typed, err := ParseTemplate("{{ int($BATCH_SIZE) }}")
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	v, err := typed.Eval(scope)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v != int64(16) {
		t.Errorf("expected int64(16), got %#v", v)
	}

	mixed, err := ParseTemplate("models/{{ $TRANSFORMERS_MODEL_NAME }}/bs{{ int($BATCH_SIZE) * 2 }}")
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	v, err = mixed.Eval(scope)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v != "models/roberta-base/bs32" {
		t.Errorf("unexpected interpolation %#v", v)
	}

	params, vars := mixed.Refs()
	if len(params) != 2 || params[0] != "BATCH_SIZE" || params[1] != "TRANSFORMERS_MODEL_NAME" {
		t.Errorf("unexpected params %v", params)
	}
	if len(vars) != 0 {
		t.Errorf("unexpected vars %v", vars)
	}
}

func TestTemplate_DelimiterInsideString(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{`{{ "a}}b" }}`, "a}}b"},
		{`x{{ "}}" + "y" }}z`, "x}}yz"},
		{`{{ 1 }}{{ "}}" }}`, "1}}"},
	}

	for _, tt := range tests {
		tpl, err := ParseTemplate(tt.src)
		if err != nil {
			t.Errorf("%s: ParseTemplate failed: %v", tt.src, err)
			continue
		}
		got, err := tpl.Eval(mapScope{})
		if err != nil {
			t.Errorf("%s: Eval failed: %v", tt.src, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %#v, want %#v", tt.src, got, tt.want)
		}
	}
}

func TestTemplate_Unclosed(t *testing.T) {
	_, err := ParseTemplate("value {{ 1 + 2")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestTemplate_PlainString(t *testing.T) {
	tpl, err := ParseTemplate("plain")
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	v, err := tpl.Eval(mapScope{})
	if err != nil || v != "plain" {
		t.Fatalf("got %#v, %v", v, err)
	}
}
