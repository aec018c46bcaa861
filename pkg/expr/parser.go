package expr

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
)

type parser struct {
	src  string
	s    scanner.Scanner
	tok  rune
	text string
	pos  int
	err  *SyntaxError
}

// Parse parses a single expression such as `int($TOTAL_STEPS) / 10`.
func Parse(src string) (Node, error) {
	p := &parser{src: src}
	p.s.Init(strings.NewReader(src))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings
	p.s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || unicode.IsLetter(ch) || (ch == '$' && i == 0) || (unicode.IsDigit(ch) && i > 0)
	}
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.fail(s.Pos().Offset, msg)
	}

	p.next()
	if p.tok == scanner.EOF {
		return nil, &SyntaxError{Source: src, Offset: 0, Msg: "empty expression"}
	}

	n := p.parseAdditive()
	if p.err == nil && p.tok != scanner.EOF {
		p.fail(p.pos, fmt.Sprintf("unexpected %q", p.text))
	}
	if p.err != nil {
		return nil, p.err
	}
	return n, nil
}

func (p *parser) fail(offset int, msg string) {
	if p.err == nil {
		p.err = &SyntaxError{Source: p.src, Offset: offset, Msg: msg}
	}
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.pos = p.s.Position.Offset

	if p.tok == '/' && p.s.Peek() == '/' {
		p.s.Next()
		p.text = "//"
	}
}

func (p *parser) isOp(ops ...string) bool {
	if p.tok == scanner.Ident || p.tok == scanner.Int || p.tok == scanner.Float || p.tok == scanner.String {
		return false
	}
	for _, op := range ops {
		if p.text == op {
			return true
		}
	}
	return false
}

func (p *parser) parseAdditive() Node {
	x := p.parseMultiplicative()
	for p.err == nil && p.isOp("+", "-") {
		op := p.text
		p.next()
		y := p.parseMultiplicative()
		x = &Binary{Op: op, X: x, Y: y}
	}
	return x
}

func (p *parser) parseMultiplicative() Node {
	x := p.parseUnary()
	for p.err == nil && p.isOp("*", "/", "//", "%") {
		op := p.text
		p.next()
		y := p.parseUnary()
		x = &Binary{Op: op, X: x, Y: y}
	}
	return x
}

func (p *parser) parseUnary() Node {
	if p.isOp("-", "+") {
		op := p.text
		p.next()
		x := p.parseUnary()
		if op == "+" {
			return x
		}
		return &Unary{Op: op, X: x}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() Node {
	if p.err != nil {
		return nil
	}

	switch p.tok {
	case scanner.Int:
		text := p.text
		p.next()
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			v, err = strconv.ParseInt(text, 0, 64)
		}
		if err != nil {
			p.fail(p.pos, fmt.Sprintf("invalid integer %s", text))
			return nil
		}
		return &Literal{Val: v}

	case scanner.Float:
		text := p.text
		p.next()
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.fail(p.pos, fmt.Sprintf("invalid number %s", text))
			return nil
		}
		return &Literal{Val: v}

	case scanner.String:
		text := p.text
		p.next()
		v, err := strconv.Unquote(text)
		if err != nil {
			p.fail(p.pos, fmt.Sprintf("invalid string %s", text))
			return nil
		}
		return &Literal{Val: v}

	case scanner.Ident:
		return p.parseIdent()

	case '(':
		p.next()
		x := p.parseAdditive()
		if p.err == nil && p.tok != ')' {
			p.fail(p.pos, "expected )")
			return nil
		}
		p.next()
		return x

	case scanner.EOF:
		p.fail(p.pos, "unexpected end of expression")
		return nil

	default:
		p.fail(p.pos, fmt.Sprintf("unexpected %q", p.text))
		return nil
	}
}

func (p *parser) parseIdent() Node {
	name, pos := p.text, p.pos
	p.next()

	if strings.HasPrefix(name, "$") {
		param := name[1:]
		if !validName(param) {
			p.fail(pos, fmt.Sprintf("invalid parameter name %q", name))
			return nil
		}
		return &ParamRef{Name: param}
	}

	switch name {
	case "true":
		return &Literal{Val: true}
	case "false":
		return &Literal{Val: false}
	}

	if p.tok != '(' {
		return &VarRef{Name: name}
	}

	if _, ok := builtins[name]; !ok {
		p.fail(pos, fmt.Sprintf("unknown function %s", name))
		return nil
	}

	p.next()
	call := &Call{Func: name}
	for p.err == nil && p.tok != ')' {
		call.Args = append(call.Args, p.parseAdditive())
		if p.err != nil {
			return nil
		}
		if p.tok == ',' {
			p.next()
			continue
		}
		if p.tok != ')' {
			p.fail(p.pos, "expected , or )")
			return nil
		}
	}
	p.next()
	return call
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
