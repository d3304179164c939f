// Package footer renders the block appended to every post: source and
// issue links, and where the post was first published.
package footer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// ErrTemplate indicates a footer template that does not parse or execute.
var ErrTemplate = errors.New("invalid footer template")

// Sites holds the base URLs footer links are built from. Empty fields
// produce empty links, which the default template omits.
type Sites struct {
	// Source is the browsable repository directory holding all posts.
	Source string
	// Issue is the new-issue page of the repository.
	Issue string
	// Canonical is the site the posts are published on.
	Canonical string
}

// SourceURL links to the directory of one post.
func (s Sites) SourceURL(canonical string) string {
	return join(s.Source, canonical)
}

// CanonicalURL links to the published post.
func (s Sites) CanonicalURL(canonical string) string {
	return join(s.Canonical, canonical)
}

// IssueURL opens a new issue with title prefilled.
func (s Sites) IssueURL(title string) string {
	if s.Issue == "" {
		return ""
	}
	return s.Issue + "?title=" + strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
}

func join(base, name string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + name
}

// Data is the footer template input.
type Data struct {
	Title         string
	SourceURL     string
	IssueURL      string
	CanonicalURL  string
	IncludeSource bool
	Hugo          bool
}

// Render executes a text/template footer. Unknown fields are errors.
func Render(tmpl string, data Data) (string, error) {
	t, err := template.New("footer").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return sb.String(), nil
}

// Append adds footer after md, on a new line.
func Append(md, footer string) string {
	if footer == "" {
		return md
	}
	if !strings.HasSuffix(md, "\n") {
		md += "\n"
	}
	return md + footer
}
