// Package frontmatter models the YAML header of a post: locating it, decoding
// it into ordered keys plus typed fields, validating required metadata and
// writing it back in front of a body.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alnah/go-mdpost/internal/yamlutil"
)

// Delimiter opens and closes the header block.
const Delimiter = "---"

// SettingsKeys lists the keys accepted for the execution-settings section,
// in lookup order. The second is the historical name.
var SettingsKeys = []string{"mdpost", "jupyblog"}

// Sentinel errors for front matter operations.
var (
	ErrNoFrontMatter = errors.New("markdown file does not have YAML front matter")
	ErrNotAtTop      = errors.New("front matter not located at the top")
	ErrUnclosed      = errors.New("closing --- for front matter not found")
	ErrInvalid       = errors.New("invalid front matter")
	ErrMissingField  = errors.New("missing required front matter field")
)

// Settings is the execution-settings section of the header.
type Settings struct {
	ExecuteCode     bool `yaml:"execute_code"`
	AllowExpand     bool `yaml:"allow_expand"`
	SerializeImages bool `yaml:"serialize_images"`
}

// DefaultSettings returns the settings applied when the header omits them.
func DefaultSettings() Settings {
	return Settings{ExecuteCode: true}
}

// FrontMatter is a decoded header. Typed fields are read-only views of the
// ordered raw keys; mutate through Set and Delete.
type FrontMatter struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        []string
	Images      []string
	Settings    Settings

	raw yamlutil.MapSlice
}

// Span holds the line indexes of the opening and closing delimiters and the
// byte offset where the body starts.
type Span struct {
	OpenLine  int
	CloseLine int
	BodyStart int
}

// Locate finds the header delimiters. The opening delimiter must be the
// first line of the text.
func Locate(text string) (Span, error) {
	var (
		found  []int
		offset int
		body   = -1
	)
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, "\r\n") == Delimiter {
			found = append(found, i)
			if len(found) == 2 {
				body = offset + len(line)
				break
			}
		}
		offset += len(line)
	}

	switch {
	case len(found) == 0:
		return Span{}, ErrNoFrontMatter
	case found[0] != 0:
		return Span{}, ErrNotAtTop
	case len(found) < 2:
		return Span{}, ErrUnclosed
	}
	return Span{OpenLine: found[0], CloseLine: found[1], BodyStart: body}, nil
}

// Split returns the header text (with delimiters) and the body.
func Split(text string) (header, body string, err error) {
	span, err := Locate(text)
	if err != nil {
		return "", "", err
	}
	return text[:span.BodyStart], text[span.BodyStart:], nil
}

// yamlFormat plugs the goccy-backed ordered decoder into adrg/frontmatter.
var yamlFormat = frontmatter.NewFormat(Delimiter, Delimiter, func(data []byte, v any) error {
	ms, err := yamlutil.UnmarshalOrdered(data)
	if err != nil {
		return err
	}
	*(v.(*yamlutil.MapSlice)) = ms
	return nil
})

// Parse decodes the header of text. It does not validate required fields.
func Parse(text string) (*FrontMatter, error) {
	header, _, err := Split(text)
	if err != nil {
		return nil, err
	}

	var raw yamlutil.MapSlice
	if _, err := frontmatter.MustParse(strings.NewReader(header), &raw, yamlFormat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	fm := &FrontMatter{raw: raw}
	if err := fm.decode(); err != nil {
		return nil, err
	}
	return fm, nil
}

// decode refreshes the typed fields from the raw keys.
func (fm *FrontMatter) decode() error {
	fm.Title, fm.Description = "", ""
	fm.Tags, fm.Images = nil, nil
	fm.Settings = DefaultSettings()

	if v, ok := fm.Get("title"); ok {
		fm.Title = scalarString(v)
	}
	if v, ok := fm.Get("description"); ok {
		fm.Description = scalarString(v)
	}
	if v, ok := fm.Get("tags"); ok {
		fm.Tags = stringList(v)
	}
	if v, ok := fm.Get("images"); ok {
		fm.Images = stringList(v)
	}

	for _, key := range SettingsKeys {
		section, ok := fm.Get(key)
		if !ok || section == nil {
			continue
		}
		data, err := yamlutil.Marshal(section)
		if err != nil {
			return fmt.Errorf("%w: %s section: %v", ErrInvalid, key, err)
		}
		if err := yamlutil.UnmarshalStrict(data, &fm.Settings); err != nil {
			return fmt.Errorf("%w: %s section: %v", ErrInvalid, key, err)
		}
		break
	}
	return nil
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// stringList accepts a scalar or a sequence.
func stringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, scalarString(item))
		}
		return out
	case []string:
		return val
	default:
		return []string{scalarString(val)}
	}
}

// Validate checks that title and description are present.
func (fm *FrontMatter) Validate() error {
	err := validation.ValidateStruct(fm,
		validation.Field(&fm.Title, validation.Required),
		validation.Field(&fm.Description, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingField, err)
	}
	return nil
}

// Get returns the value of a top-level key.
func (fm *FrontMatter) Get(key string) (any, bool) {
	for _, item := range fm.raw {
		if k, ok := item.Key.(string); ok && k == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Has reports whether a top-level key is present.
func (fm *FrontMatter) Has(key string) bool {
	_, ok := fm.Get(key)
	return ok
}

// Set replaces a key in place or appends it.
func (fm *FrontMatter) Set(key string, value any) {
	for i, item := range fm.raw {
		if k, ok := item.Key.(string); ok && k == key {
			fm.raw[i].Value = value
			_ = fm.decode()
			return
		}
	}
	fm.raw = append(fm.raw, yamlutil.MapItem{Key: key, Value: value})
	_ = fm.decode()
}

// Delete removes a key and reports whether it existed.
func (fm *FrontMatter) Delete(key string) bool {
	for i, item := range fm.raw {
		if k, ok := item.Key.(string); ok && k == key {
			fm.raw = append(fm.raw[:i], fm.raw[i+1:]...)
			_ = fm.decode()
			return true
		}
	}
	return false
}

// Keys returns the top-level keys in document order.
func (fm *FrontMatter) Keys() []string {
	keys := make([]string, 0, len(fm.raw))
	for _, item := range fm.raw {
		keys = append(keys, fmt.Sprint(item.Key))
	}
	return keys
}

// Header serializes the front matter including both delimiters.
func (fm *FrontMatter) Header() (string, error) {
	if len(fm.raw) == 0 {
		return Delimiter + "\n" + Delimiter + "\n", nil
	}
	data, err := yamlutil.Marshal(fm.raw)
	if err != nil {
		return "", err
	}
	return Delimiter + "\n" + string(data) + Delimiter + "\n", nil
}

// Replace swaps the header of text with fm.
func Replace(text string, fm *FrontMatter) (string, error) {
	_, body, err := Split(text)
	if err != nil {
		return "", err
	}
	header, err := fm.Header()
	if err != nil {
		return "", err
	}
	return header + body, nil
}

// Delete strips the header. Text without a valid header is returned as is.
func Delete(text string) string {
	_, body, err := Split(text)
	if err != nil {
		return text
	}
	return body
}
