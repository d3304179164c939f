package expand

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// LineRange selects source lines, 1-indexed and inclusive on both ends.
type LineRange struct {
	Start int
	End   int
}

// Directive is a parsed `expand(...)` call.
type Directive struct {
	Path    string
	Symbol  string
	Symbols []string
	Lines   *LineRange
	Args    *string
}

var positional = []string{"path", "symbols", "lines", "args"}

// parseDirective parses the argument list of an expand call. s starts right
// after the opening parenthesis; the returned offset points past the closing
// one.
func parseDirective(s string) (Directive, int, error) {
	p := &argParser{s: s}
	var (
		d    Directive
		seen = make(map[string]bool)
		idx  int
	)

	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			break
		}
		if p.eof() {
			return Directive{}, 0, p.errorf("missing closing parenthesis")
		}

		name := ""
		save := p.pos
		if ident := p.ident(); ident != "" {
			p.skipSpace()
			if p.peek() == '=' {
				p.pos++
				name = ident
			} else {
				p.pos = save
			}
		}
		if name == "" {
			if idx >= len(positional) {
				return Directive{}, 0, p.errorf("too many arguments")
			}
			name = positional[idx]
			idx++
		}
		if seen[name] {
			return Directive{}, 0, p.errorf("argument %q given twice", name)
		}
		seen[name] = true

		v, err := p.value()
		if err != nil {
			return Directive{}, 0, err
		}
		if err := d.assign(name, v); err != nil {
			return Directive{}, 0, fmt.Errorf("%w: %w", ErrInvalidDirective, err)
		}

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return Directive{}, 0, p.errorf("expected ',' or ')'")
		}
	}

	if !seen["path"] {
		return Directive{}, 0, fmt.Errorf("%w: missing path", ErrInvalidDirective)
	}
	return d, p.pos, nil
}

func (d *Directive) assign(name string, v any) error {
	switch name {
	case "path":
		s, ok := v.(string)
		if !ok || s == "" {
			return fmt.Errorf("path must be a non-empty string")
		}
		parts := strings.Split(s, "@")
		switch len(parts) {
		case 1:
			d.Path = s
		case 2:
			d.Path, d.Symbol = parts[0], parts[1]
		default:
			return fmt.Errorf("%w: %q", ErrAmbiguousSelector, s)
		}
	case "symbols":
		switch val := v.(type) {
		case string:
			d.Symbols = []string{val}
		case []any:
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("symbols must be strings")
				}
				d.Symbols = append(d.Symbols, s)
			}
		default:
			return fmt.Errorf("symbols must be a string or a list of strings")
		}
	case "lines":
		items, ok := v.([]any)
		if !ok || len(items) != 2 {
			return fmt.Errorf("lines must be a (start, end) pair")
		}
		start, ok1 := items[0].(int)
		end, ok2 := items[1].(int)
		if !ok1 || !ok2 || start < 1 || end < start {
			return fmt.Errorf("invalid line range %v", items)
		}
		d.Lines = &LineRange{Start: start, End: end}
	case "args":
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("args must be a string")
		}
		d.Args = &s
	default:
		return fmt.Errorf("unknown argument %q", name)
	}
	return nil
}

// argParser reads the literal subset accepted inside a directive: quoted
// strings, integers, lists and tuples.
type argParser struct {
	s   string
	pos int
}

func (p *argParser) eof() bool { return p.pos >= len(p.s) }

func (p *argParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *argParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.s[p.pos])) {
		p.pos++
	}
}

func (p *argParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrInvalidDirective, fmt.Sprintf(format, args...), p.pos)
}

func (p *argParser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.s[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.s[start:p.pos]
}

func (p *argParser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.str(c)
	case c == '[':
		return p.sequence(']')
	case c == '(':
		return p.sequence(')')
	case c == '-' || (c >= '0' && c <= '9'):
		return p.integer()
	default:
		return nil, p.errorf("unexpected %q", string(c))
	}
}

func (p *argParser) str(quote byte) (string, error) {
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.s[p.pos]
		switch c {
		case '\\':
			if p.pos+1 < len(p.s) {
				sb.WriteByte(p.s[p.pos+1])
				p.pos += 2
				continue
			}
		case quote:
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", p.errorf("unterminated string")
}

func (p *argParser) integer() (int, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return 0, p.errorf("invalid integer %q", p.s[start:p.pos])
	}
	return n, nil
}

func (p *argParser) sequence(closing byte) ([]any, error) {
	p.pos++
	var items []any
	for {
		p.skipSpace()
		if p.peek() == closing {
			p.pos++
			return items, nil
		}
		if p.eof() {
			return nil, p.errorf("unterminated list")
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closing:
		default:
			return nil, p.errorf("expected ',' or %q", string(closing))
		}
	}
}
