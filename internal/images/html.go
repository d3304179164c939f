package images

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// rewriteTag rewrites the src of a single <img> tag. The tag is returned
// unchanged when it does not parse or fix leaves src as is, so untouched
// tags keep their original spelling.
func rewriteTag(tag string, fix func(string) string) string {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(tag), body)
	if err != nil || len(nodes) != 1 {
		return tag
	}
	n := nodes[0]
	if n.Type != html.ElementNode || n.DataAtom != atom.Img {
		return tag
	}

	changed := false
	for i, attr := range n.Attr {
		if attr.Key != "src" {
			continue
		}
		if fixed := fix(attr.Val); fixed != attr.Val {
			n.Attr[i].Val = fixed
			changed = true
		}
	}
	if !changed {
		return tag
	}

	var buf strings.Builder
	if err := html.Render(&buf, n); err != nil {
		return tag
	}
	return buf.String()
}
