package mdast

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAttribute indicates a malformed info-string attribute.
var ErrInvalidAttribute = errors.New("invalid code block attribute")

// Attributes are the recognized info-string attributes. Keys this package
// does not know are kept in Extra, in their raw string form.
type Attributes struct {
	Skip  bool
	Hide  bool
	ID    string
	Extra map[string]string
}

// Info is a parsed info string: `language key=value,key=value`.
type Info struct {
	Lang  string
	Attrs Attributes
	// Annotated is false for an empty info string.
	Annotated bool
}

// ParseInfo parses an info string. Attributes follow the language after a
// space and are separated by commas or whitespace. A bare key means true.
func ParseInfo(info string) (Info, error) {
	info = strings.TrimSpace(info)
	if info == "" {
		return Info{}, nil
	}

	out := Info{Annotated: true}
	lang, rest, _ := strings.Cut(info, " ")
	if strings.Contains(lang, "=") {
		lang, rest = "", info
	}
	out.Lang = lang

	tokens := strings.FieldsFunc(rest, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, tok := range tokens {
		key, value, hasValue := strings.Cut(tok, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return Info{}, fmt.Errorf("%w: %q", ErrInvalidAttribute, tok)
		}
		if !hasValue {
			value = "true"
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		switch key {
		case "skip":
			b, err := parseBool(value)
			if err != nil {
				return Info{}, fmt.Errorf("%w: skip=%s", ErrInvalidAttribute, value)
			}
			out.Attrs.Skip = b
		case "hide":
			b, err := parseBool(value)
			if err != nil {
				return Info{}, fmt.Errorf("%w: hide=%s", ErrInvalidAttribute, value)
			}
			out.Attrs.Hide = b
		case "id":
			out.Attrs.ID = value
		default:
			if out.Attrs.Extra == nil {
				out.Attrs.Extra = make(map[string]string)
			}
			out.Attrs.Extra[key] = value
		}
	}
	return out, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, errors.New("not a boolean")
}
