// Package links tags the outbound links of a post with campaign (UTM)
// parameters.
package links

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/alnah/go-mdpost/internal/mdast"
)

// imageExts are static resources that never get campaign parameters.
var imageExts = []string{".png", ".jpg", ".jpeg", ".svg", ".webp", ".gif"}

// Campaign holds the UTM parameters. Campaign may be empty.
type Campaign struct {
	Source   string
	Medium   string
	Campaign string
	// BaseURLs restricts tagging to links containing one of them; empty
	// tags every link.
	BaseURLs []string
}

// Enabled reports whether the campaign has the required parameters.
func (c Campaign) Enabled() bool {
	return c.Source != "" && c.Medium != ""
}

// TagURL returns raw with the campaign parameters merged into its query.
func (c Campaign) TagURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("utm_source", c.Source)
	q.Set("utm_medium", c.Medium)
	if c.Campaign != "" {
		q.Set("utm_campaign", c.Campaign)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Tag rewrites every link target of md, as found by the Markdown parser,
// with the campaign parameters. Links to images, anchors and relative
// paths are skipped, as is anything inside fenced code.
func Tag(md string, c Campaign) (string, error) {
	if !c.Enabled() {
		return md, nil
	}

	var targets []string
	for dest := range mdast.Parse(md).Links() {
		if c.selects(dest) && !slices.Contains(targets, dest) {
			targets = append(targets, dest)
		}
	}

	var pairs []string
	for _, dest := range targets {
		tagged, err := c.TagURL(dest)
		if err != nil {
			continue
		}
		pairs = append(pairs, "("+dest+")", "("+tagged+")")
	}
	if len(pairs) == 0 {
		return md, nil
	}
	r := strings.NewReplacer(pairs...)
	return mdast.OutsideFences(md, r.Replace), nil
}

func (c Campaign) selects(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if slices.Contains(imageExts, strings.ToLower(path.Ext(u.Path))) {
		return false
	}
	if len(c.BaseURLs) == 0 {
		return true
	}
	return slices.ContainsFunc(c.BaseURLs, func(base string) bool {
		return strings.Contains(dest, base)
	})
}
