package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"decodegen/internal/rules"
)

// ParseRuleTable parses the textual rule-table DSL into a RuleSet. The
// result still needs binding resolution before it can be expanded.
//
// The DSL is a header followed by rule declarations:
//
//	width      = 8;
//	dispatcher = dispatch;
//	context    = Vm;
//
//	"11rr'____" => impl_add(r) where {
//	    r: Register = { 00 => R0, 01 => R1, 10 => R2, 11 => R3 }
//	};
//	"0001'1000" => impl_clc;
func ParseRuleTable(src string) (*rules.RuleSet, error) {
	log.Info().Msg("Started parsing rule table...")

	p := &tableParser{lex: newLexer(src)}
	rs, err := p.parse()
	if err != nil {
		return nil, err
	}

	log.Info().Int("rules", len(rs.Rules)).Int("width", rs.Width).Msg("Parsed rule table")
	return rs, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct // single-character punctuation
	tokArrow // =>
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '\n':
			l.line++
			l.pos++
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.pos++
		case ch == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			goto scan
		}
	}
	return token{kind: tokEOF, line: l.line}, nil

scan:
	start := l.pos
	ch := l.src[l.pos]

	switch {
	case ch == '"':
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\n' {
				return token{}, fmt.Errorf("line %d: unterminated pattern string", l.line)
			}
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("line %d: unterminated pattern string", l.line)
		}
		l.pos++
		return token{kind: tokString, text: l.src[start+1 : l.pos-1], line: l.line}, nil

	case isDigit(ch):
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || isAlpha(l.src[l.pos])) {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], line: l.line}, nil

	case isAlpha(ch):
		for l.pos < len(l.src) && (isAlpha(l.src[l.pos]) || isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], line: l.line}, nil

	case ch == '=' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '>':
		l.pos += 2
		return token{kind: tokArrow, text: "=>", line: l.line}, nil

	case strings.ContainsRune("={};:,()", rune(ch)):
		l.pos++
		return token{kind: tokPunct, text: string(ch), line: l.line}, nil
	}

	return token{}, fmt.Errorf("line %d: unexpected character %q", l.line, string(ch))
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isAlpha(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

type tableParser struct {
	lex    *lexer
	tok    token
	peeked bool
}

func (p *tableParser) next() (token, error) {
	if p.peeked {
		p.peeked = false
		return p.tok, nil
	}
	return p.lex.next()
}

func (p *tableParser) peek() (token, error) {
	if !p.peeked {
		tok, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.tok = tok
		p.peeked = true
	}
	return p.tok, nil
}

func (p *tableParser) expect(kind tokenKind, text string) (token, error) {
	tok, err := p.next()
	if err != nil {
		return token{}, err
	}
	if tok.kind != kind || (text != "" && tok.text != text) {
		want := text
		if want == "" {
			want = [...]string{"end of input", "identifier", "number", "pattern string", "punctuation", "'=>'"}[kind]
		}
		return token{}, fmt.Errorf("line %d: expected %s, found %q", tok.line, want, tok.text)
	}
	return tok, nil
}

func (p *tableParser) parse() (*rules.RuleSet, error) {
	rs := &rules.RuleSet{}
	if err := p.parseHeader(rs); err != nil {
		return nil, err
	}

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}
		rule, err := p.parseRule(rs.Width)
		if err != nil {
			return nil, err
		}
		rule.Index = len(rs.Rules)
		rs.Rules = append(rs.Rules, rule)
	}

	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("rule table declares no rules")
	}
	return rs, nil
}

// parseHeader reads the three required "key = value;" declarations, in any
// order, up to the first pattern string.
func (p *tableParser) parseHeader(rs *rules.RuleSet) error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.kind != tokIdent {
			break
		}

		key, _ := p.next()
		if _, err := p.expect(tokPunct, "="); err != nil {
			return err
		}
		val, err := p.next()
		if err != nil {
			return err
		}

		switch key.text {
		case "width":
			w, err := strconv.Atoi(val.text)
			if err != nil || !ValidWidth(w) {
				return fmt.Errorf("line %d: width must be 8, 16, 32 or 64, found %q", val.line, val.text)
			}
			rs.Width = w
		case "dispatcher":
			rs.Dispatcher = val.text
		case "context":
			rs.Context = val.text
		default:
			return fmt.Errorf("line %d: unknown header key %q", key.line, key.text)
		}

		if _, err := p.expect(tokPunct, ";"); err != nil {
			return err
		}
	}

	if rs.Width == 0 {
		return fmt.Errorf("rule table header is missing the opcode width")
	}
	if rs.Dispatcher == "" {
		return fmt.Errorf("rule table header is missing the dispatcher name")
	}
	if rs.Context == "" {
		return fmt.Errorf("rule table header is missing the context type")
	}
	return nil
}

// parseRule reads one `"pattern" => handler(args) where {...};` declaration.
func (p *tableParser) parseRule(width int) (*rules.Rule, error) {
	patTok, err := p.expect(tokString, "")
	if err != nil {
		return nil, err
	}
	pattern, err := ParsePattern(patTok.text, width)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", patTok.line, err)
	}

	if _, err := p.expect(tokArrow, ""); err != nil {
		return nil, err
	}
	handler, err := p.expect(tokIdent, "")
	if err != nil {
		return nil, err
	}

	rule := &rules.Rule{
		Pattern: pattern,
		Source:  patTok.text,
		Handler: handler.text,
		Where:   map[byte]rules.Binding{},
		Line:    patTok.line,
	}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokPunct && tok.text == "(" {
		if rule.Args, err = p.parseArgs(); err != nil {
			return nil, err
		}
		if tok, err = p.peek(); err != nil {
			return nil, err
		}
	}

	if tok.kind == tokIdent && tok.text == "where" {
		p.next()
		if err := p.parseWhere(rule); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(tokPunct, ";"); err != nil {
		return nil, err
	}
	return rule, nil
}

// parseArgs reads the handler's argument expressions. A single lowercase
// letter references a pattern variable; anything else is a fixed constant
// copied through unchanged.
func (p *tableParser) parseArgs() ([]rules.Arg, error) {
	if _, err := p.expect(tokPunct, "("); err != nil {
		return nil, err
	}

	var args []rules.Arg
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.kind == tokPunct && tok.text == ")" && len(args) == 0:
			return args, nil
		case tok.kind == tokIdent && len(tok.text) == 1 && tok.text[0] >= 'a' && tok.text[0] <= 'z':
			args = append(args, rules.Arg{Var: tok.text[0]})
		case tok.kind == tokIdent:
			args = append(args, rules.Arg{Const: rules.Constant{Expr: tok.text, Value: tok.text}})
		case tok.kind == tokNumber:
			n, err := parseNumber(tok.text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", tok.line, err)
			}
			args = append(args, rules.Arg{Const: rules.Constant{Expr: tok.text, Value: n}})
		default:
			return nil, fmt.Errorf("line %d: unexpected argument %q", tok.line, tok.text)
		}

		tok, err = p.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPunct && tok.text == ")" {
			return args, nil
		}
		if tok.kind != tokPunct || tok.text != "," {
			return nil, fmt.Errorf("line %d: expected ',' or ')', found %q", tok.line, tok.text)
		}
	}
}

// parseWhere reads the `where { var: Type = mapping, ... }` clause.
func (p *tableParser) parseWhere(rule *rules.Rule) error {
	if _, err := p.expect(tokPunct, "{"); err != nil {
		return err
	}

	for {
		nameTok, err := p.next()
		if err != nil {
			return err
		}
		if nameTok.kind == tokPunct && nameTok.text == "}" {
			return nil
		}
		if nameTok.kind != tokIdent || len(nameTok.text) != 1 || nameTok.text[0] < 'a' || nameTok.text[0] > 'z' {
			return fmt.Errorf("line %d: expected a variable letter, found %q", nameTok.line, nameTok.text)
		}
		name := nameTok.text[0]
		if _, dup := rule.Where[name]; dup {
			return fmt.Errorf("line %d: duplicate binding for variable %q", nameTok.line, string(name))
		}

		binding := rules.Binding{Kind: rules.RawInteger}

		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.kind == tokPunct && tok.text == ":" {
			p.next()
			typeTok, err := p.expect(tokIdent, "")
			if err != nil {
				return err
			}
			binding.Type = typeTok.text
		}

		if tok, err = p.peek(); err != nil {
			return err
		}
		if tok.kind == tokPunct && tok.text == "=" {
			p.next()
			if tok, err = p.peek(); err != nil {
				return err
			}
			if tok.kind == tokPunct && tok.text == "{" {
				binding.Kind = rules.LiteralMap
				if binding.Literals, err = p.parseLiteralMap(); err != nil {
					return err
				}
			} else {
				funcTok, err := p.expect(tokIdent, "")
				if err != nil {
					return err
				}
				binding.Kind = rules.PureFunction
				binding.FuncName = funcTok.text
			}
		}

		rule.Where[name] = binding

		if tok, err = p.next(); err != nil {
			return err
		}
		if tok.kind == tokPunct && tok.text == "}" {
			return nil
		}
		if tok.kind != tokPunct || tok.text != "," {
			return fmt.Errorf("line %d: expected ',' or '}', found %q", tok.line, tok.text)
		}
	}
}

// parseLiteralMap reads `{ bits => Constant, ... }`. Keys are binary, with
// an optional 0b prefix.
func (p *tableParser) parseLiteralMap() (map[uint64]rules.Constant, error) {
	if _, err := p.expect(tokPunct, "{"); err != nil {
		return nil, err
	}

	literals := map[uint64]rules.Constant{}
	for {
		keyTok, err := p.next()
		if err != nil {
			return nil, err
		}
		if keyTok.kind == tokPunct && keyTok.text == "}" && len(literals) == 0 {
			return literals, nil
		}
		if keyTok.kind != tokNumber {
			return nil, fmt.Errorf("line %d: expected binary bits, found %q", keyTok.line, keyTok.text)
		}
		key, err := parseBits(keyTok.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", keyTok.line, err)
		}
		if _, dup := literals[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate literal key %q", keyTok.line, keyTok.text)
		}

		if _, err := p.expect(tokArrow, ""); err != nil {
			return nil, err
		}
		valTok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch valTok.kind {
		case tokIdent:
			literals[key] = rules.Constant{Expr: valTok.text, Value: valTok.text}
		case tokNumber:
			n, err := parseNumber(valTok.text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %v", valTok.line, err)
			}
			literals[key] = rules.Constant{Expr: valTok.text, Value: n}
		default:
			return nil, fmt.Errorf("line %d: expected constant, found %q", valTok.line, valTok.text)
		}

		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPunct && tok.text == "}" {
			return literals, nil
		}
		if tok.kind != tokPunct || tok.text != "," {
			return nil, fmt.Errorf("line %d: expected ',' or '}', found %q", tok.line, tok.text)
		}
	}
}

// parseBits parses a binary literal-table key such as 10 or 0b10.
func parseBits(text string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(text, "0b"), "0B")
	v, err := strconv.ParseUint(trimmed, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid binary bits %q", text)
	}
	return v, nil
}

// parseNumber parses a fixed numeric argument in any Go integer base.
func parseNumber(text string) (uint64, error) {
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", text)
	}
	return v, nil
}
