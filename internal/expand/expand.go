// Package expand implements the content expansion pass: `{{ expand(...) }}`
// directives are replaced with fenced code blocks holding the content of
// another file, a single declaration, a set of declarations with their
// imports, or a line range. `{{ name }}` placeholders are replaced from a
// variables map; unknown names are left as written.
package expand

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Sentinel errors for expansion.
var (
	ErrInvalidDirective  = errors.New("invalid expand directive")
	ErrAmbiguousSelector = errors.New("@ appears more than once")
	ErrUnknownSymbol     = errors.New("unknown symbol")
	ErrSourceRead        = errors.New("cannot read expanded file")
)

// Options configure an expansion pass.
type Options struct {
	// Root resolves relative directive paths. Empty means the working
	// directory.
	Root string
	// Args starts the attributes of every emitted fence. Attributes given
	// by a directive follow it, so they cannot drop Args.
	Args string
	// Variables fill `{{ name }}` placeholders.
	Variables map[string]string
}

// Expand runs the expansion pass over text.
func Expand(text string, opts Options) (string, error) {
	var (
		sb     strings.Builder
		cursor int
	)
	for {
		open := strings.Index(text[cursor:], "{{")
		if open < 0 {
			sb.WriteString(text[cursor:])
			break
		}
		open += cursor
		sb.WriteString(text[cursor:open])

		replacement, consumed, err := expandTag(text[open:], opts)
		if err != nil {
			return "", err
		}
		if consumed == 0 {
			sb.WriteString("{{")
			cursor = open + 2
			continue
		}
		sb.WriteString(replacement)
		cursor = open + consumed
	}
	return sb.String(), nil
}

// expandTag handles a tag starting with "{{". A zero consumed count means
// the text is not a tag this package owns and is copied verbatim.
func expandTag(s string, opts Options) (string, int, error) {
	inner := strings.TrimLeft(s[2:], " \t")
	offset := len(s) - len(inner)

	if rest, ok := strings.CutPrefix(inner, "expand"); ok {
		trimmed := strings.TrimLeft(rest, " \t")
		if strings.HasPrefix(trimmed, "(") {
			start := offset + len("expand") + (len(rest) - len(trimmed)) + 1
			d, n, err := parseDirective(s[start:])
			if err != nil {
				return "", 0, err
			}
			end := start + n
			tail := strings.TrimLeft(s[end:], " \t")
			if !strings.HasPrefix(tail, "}}") {
				return "", 0, fmt.Errorf("%w: missing closing }}", ErrInvalidDirective)
			}
			out, err := render(d, opts)
			if err != nil {
				return "", 0, err
			}
			return out, end + (len(s[end:]) - len(tail)) + 2, nil
		}
	}

	closeIdx := strings.Index(s, "}}")
	if closeIdx < 0 {
		return "", 0, nil
	}
	name := strings.TrimSpace(s[2:closeIdx])
	if !isIdentifier(name) {
		return "", 0, nil
	}
	value, ok := opts.Variables[name]
	if !ok {
		return "", 0, nil
	}
	return value, closeIdx + 2, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// render produces the fenced block for one directive.
func render(d Directive, opts Options) (string, error) {
	path := d.Path
	if opts.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(opts.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSourceRead, d.Path, err)
	}
	content := string(data)
	lang := Language(d.Path)

	if d.Symbol != "" || len(d.Symbols) > 0 {
		if d.Symbol != "" && len(d.Symbols) > 0 {
			return "", fmt.Errorf("%w: both @%s and symbols given", ErrInvalidDirective, d.Symbol)
		}
		if lang != "python" {
			return "", fmt.Errorf("%w: symbol selection needs a Python file, got %s", ErrInvalidDirective, d.Path)
		}
		mod, err := parseModule(content)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrSourceRead, d.Path, err)
		}
		if d.Symbol != "" {
			content, err = mod.symbolSource(d.Symbol)
		} else {
			content, err = mod.selection(d.Symbols)
		}
		if err != nil {
			return "", fmt.Errorf("%s: %w", d.Path, err)
		}
	}

	if d.Lines != nil {
		content = selectLines(content, *d.Lines)
	}

	var attrs []string
	for _, a := range []string{opts.Args, directiveArgs(d)} {
		if a = strings.TrimSpace(a); a != "" {
			attrs = append(attrs, a)
		}
	}
	args := strings.Join(attrs, ",")
	if args != "" {
		args = " " + args
	}
	return fmt.Sprintf("```%s%s\n# Content of %s\n%s\n```", lang, args, d.Path, content), nil
}

func directiveArgs(d Directive) string {
	if d.Args == nil {
		return ""
	}
	return *d.Args
}

// selectLines keeps lines start..end, 1-indexed and inclusive.
func selectLines(content string, r LineRange) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	start, end := r.Start-1, r.End
	if start > len(lines) {
		start = len(lines)
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// Language returns the fence language for a file name, from chroma's lexer
// registry, falling back to the bare extension.
func Language(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return ""
	}
	lexer := lexers.Get(ext)
	if lexer == nil {
		lexer = lexers.Match(filepath.Base(path))
	}
	if lexer != nil {
		if cfg := lexer.Config(); cfg != nil && len(cfg.Aliases) > 0 {
			return cfg.Aliases[0]
		}
	}
	return ext
}
