package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ResultParseError is returned when an encoded result cannot be decoded as
// literal row data.
type ResultParseError struct {
	Text string
	Err  error
}

func (e *ResultParseError) Error() string {
	return fmt.Sprintf("failed to parse encoded result: %v", e.Err)
}

func (e *ResultParseError) Unwrap() error { return e.Err }

// ParseRows decodes a textual row serialization into rows. Accepted input is
// a bracketed list of tuples or lists ("[(1, 'a'), (2, 'b')]"), or a bare
// sequence of tuples as produced by the Values format ("(1,'a'),(2,'b')").
// Scalars inside the outer list become single-column rows.
//
// Only literals are accepted: quoted strings, numbers, booleans and null
// markers. Anything else is rejected.
func ParseRows(text string) ([][]any, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, &ResultParseError{Text: text, Err: errors.New("empty input")}
	}
	if s[0] == '(' {
		s = "[" + s + "]"
	}
	if s[0] != '[' {
		return nil, &ResultParseError{Text: text, Err: fmt.Errorf("unexpected leading %q", s[0])}
	}

	p := &literalParser{src: s}
	v, err := p.parseValue()
	if err != nil {
		return nil, &ResultParseError{Text: text, Err: err}
	}
	p.skipSpace()
	if !p.done() {
		return nil, &ResultParseError{Text: text, Err: fmt.Errorf("trailing data at offset %d", p.pos)}
	}

	items, ok := v.([]any)
	if !ok {
		return nil, &ResultParseError{Text: text, Err: errors.New("top-level value is not a list")}
	}
	rows := make([][]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.([]any); ok {
			rows = append(rows, row)
			continue
		}
		rows = append(rows, []any{item})
	}
	return rows, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) done() bool { return p.pos >= len(p.src) }

func (p *literalParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()
	if p.done() {
		return nil, errors.New("unexpected end of input")
	}
	switch c := p.peek(); {
	case c == '[':
		return p.parseSeq('[', ']')
	case c == '(':
		return p.parseSeq('(', ')')
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case unicode.IsLetter(rune(c)):
		return p.parseKeyword()
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
	}
}

func (p *literalParser) parseSeq(open, closing byte) ([]any, error) {
	p.pos++ // open
	out := []any{}
	for {
		p.skipSpace()
		if p.peek() == closing {
			p.pos++
			return out, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closing:
			p.pos++
			return out, nil
		default:
			if p.done() {
				return nil, fmt.Errorf("unterminated %q", open)
			}
			return nil, fmt.Errorf("expected ',' or %q at offset %d", closing, p.pos)
		}
	}
}

func (p *literalParser) parseString(quote byte) (string, error) {
	start := p.pos
	p.pos++
	var sb strings.Builder
	for !p.done() {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if p.done() {
				return "", fmt.Errorf("unterminated escape at offset %d", p.pos)
			}
			switch e := p.src[p.pos]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			default:
				sb.WriteByte(e)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string starting at offset %d", start)
}

func (p *literalParser) parseNumber() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	for !p.done() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '_' ||
			((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	lit := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("invalid number %q at offset %d", lit, start)
}

func (p *literalParser) parseKeyword() (any, error) {
	start := p.pos
	for !p.done() && (unicode.IsLetter(rune(p.src[p.pos])) || p.src[p.pos] == '_') {
		p.pos++
	}
	switch word := p.src[start:p.pos]; word {
	case "None", "NULL", "null":
		return nil, nil
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	default:
		return nil, fmt.Errorf("unsupported token %q at offset %d", word, start)
	}
}
