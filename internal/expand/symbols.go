package expand

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

var declName = regexp.MustCompile(`^(?:async\s+)?(?:def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// statement is a top-level statement of a Python module. Lines are 0-indexed
// and end is exclusive.
type statement struct {
	start  int
	end    int
	idents []string
}

// declaration is a top-level def or class, decorators included. prefix is
// the first line after the previous statement, so blank lines and comments
// above the declaration belong to it.
type declaration struct {
	name   string
	prefix int
	start  int
	end    int
	idents []string
}

type importStmt struct {
	text  string
	names []string
}

// module is the top-level structure of a Python source file.
type module struct {
	lines   []string
	decls   []declaration
	imports []importStmt
}

// parseModule splits Python source into top-level statements using the
// chroma token stream, so strings, comments and bracketed continuations
// never start a statement.
func parseModule(src string) (*module, error) {
	lexer := lexers.Get("python")
	if lexer == nil {
		return nil, fmt.Errorf("python lexer not available")
	}
	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return nil, err
	}

	var (
		stmts     []statement
		line, col int
		depth     int
		continued bool
		lastByte  byte
	)
	for _, tok := range it.Tokens() {
		val := tok.Value
		if strings.TrimSpace(val) != "" {
			isComment := tok.Type.InCategory(chroma.Comment)
			isString := tok.Type.InCategory(chroma.LiteralString)
			startsStmt := col == 0 && depth == 0 && !continued && !isComment &&
				(!isString || tok.Type == chroma.LiteralStringDoc)
			if startsStmt {
				stmts = append(stmts, statement{start: line, end: line + 1})
			}
			if n := len(stmts); n > 0 && !isComment {
				last := line + strings.Count(strings.TrimRight(val, " \t\r\n"), "\n")
				if last+1 > stmts[n-1].end {
					stmts[n-1].end = last + 1
				}
				if tok.Type.InCategory(chroma.Name) {
					// Decorators arrive as one token: "@pkg.attr".
					stmts[n-1].idents = append(stmts[n-1].idents, strings.FieldsFunc(val, notIdentRune)...)
				}
			}
			if tok.Type == chroma.Punctuation || tok.Type == chroma.Operator {
				for _, c := range val {
					switch c {
					case '(', '[', '{':
						depth++
					case ')', ']', '}':
						if depth > 0 {
							depth--
						}
					}
				}
			}
		}

		if i := strings.LastIndex(val, "\n"); i >= 0 {
			before := lastByte
			if i > 0 {
				before = val[i-1]
			}
			continued = before == '\\'
			line += strings.Count(val, "\n")
			col = len(val) - i - 1
		} else {
			col += len(val)
		}
		if val != "" {
			lastByte = val[len(val)-1]
		}
	}

	m := &module{lines: strings.SplitAfter(src, "\n")}
	m.collect(stmts)
	return m, nil
}

func notIdentRune(r rune) bool {
	return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func (m *module) lineText(i int) string {
	if i < 0 || i >= len(m.lines) {
		return ""
	}
	return m.lines[i]
}

func (m *module) text(start, end int) string {
	if end > len(m.lines) {
		end = len(m.lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(m.lines[start:end], "")
}

func (m *module) collect(stmts []statement) {
	prevEnd := 0
	decoStart := -1
	decoPrefix := 0
	var decoIdents []string

	for _, st := range stmts {
		first := strings.TrimRight(m.lineText(st.start), "\r\n")
		switch {
		case strings.HasPrefix(first, "@"):
			if decoStart < 0 {
				decoStart, decoPrefix = st.start, prevEnd
			}
			decoIdents = append(decoIdents, st.idents...)
		case declName.MatchString(first):
			d := declaration{
				name:   declName.FindStringSubmatch(first)[1],
				prefix: prevEnd,
				start:  st.start,
				end:    st.end,
				idents: st.idents,
			}
			if decoStart >= 0 {
				d.prefix, d.start = decoPrefix, decoStart
				d.idents = append(decoIdents, st.idents...)
			}
			m.decls = append(m.decls, d)
			decoStart, decoIdents = -1, nil
		case strings.HasPrefix(first, "import ") || strings.HasPrefix(first, "from "):
			text := strings.TrimRight(m.text(st.start, st.end), "\n")
			m.imports = append(m.imports, importStmt{text: text, names: importedNames(text)})
			decoStart, decoIdents = -1, nil
		default:
			decoStart, decoIdents = -1, nil
		}
		prevEnd = st.end
	}
}

// importedNames returns the names an import statement binds.
func importedNames(stmt string) []string {
	var sb strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(strings.TrimSuffix(strings.TrimSpace(line), "\\"))
		sb.WriteByte(' ')
	}
	flat := strings.NewReplacer("(", " ", ")", " ").Replace(sb.String())

	var (
		items []string
		from  bool
	)
	if rest, ok := strings.CutPrefix(strings.TrimSpace(flat), "from "); ok {
		_, imported, found := strings.Cut(rest, " import ")
		if !found {
			return nil
		}
		items, from = strings.Split(imported, ","), true
	} else {
		items = strings.Split(strings.TrimPrefix(strings.TrimSpace(flat), "import "), ",")
	}

	var names []string
	for _, item := range items {
		fields := strings.Fields(item)
		switch {
		case len(fields) == 0 || fields[0] == "*":
			continue
		case len(fields) >= 3 && fields[1] == "as":
			names = append(names, fields[2])
		case from:
			names = append(names, fields[0])
		default:
			head, _, _ := strings.Cut(fields[0], ".")
			names = append(names, head)
		}
	}
	return names
}

func (m *module) lookup(name string) (declaration, bool) {
	for _, d := range m.decls {
		if d.name == name {
			return d, true
		}
	}
	return declaration{}, false
}

// symbolSource returns a single declaration with the blank lines and
// comments that precede it.
func (m *module) symbolSource(name string) (string, error) {
	d, ok := m.lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
	}
	return m.text(d.prefix, d.end), nil
}

// selection returns the requested declarations joined by two blank lines,
// preceded by the imports they reference.
func (m *module) selection(names []string) (string, error) {
	var (
		bodies []string
		used   = make(map[string]bool)
	)
	for _, name := range names {
		d, ok := m.lookup(name)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
		}
		bodies = append(bodies, strings.Trim(m.text(d.start, d.end), "\n"))
		for _, id := range d.idents {
			used[id] = true
		}
	}

	var imports []string
	for _, imp := range m.imports {
		if slices.ContainsFunc(imp.names, func(n string) bool { return used[n] }) &&
			!slices.Contains(imports, imp.text) {
			imports = append(imports, imp.text)
		}
	}

	body := strings.Join(bodies, "\n\n\n")
	if len(imports) == 0 {
		return "\n\n" + body, nil
	}
	return "\n" + strings.Join(imports, "\n") + "\n\n\n" + body, nil
}
