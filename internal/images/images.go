// Package images rewrites the image references of a post for publishing:
// Markdown image links and <img> tags in raw HTML get a path prefix, and
// the first image can be promoted to the post's social preview.
package images

import (
	"path"
	"regexp"
	"strings"

	"github.com/alnah/go-mdpost/internal/mdast"
)

// imageRef locates the source text of ![alt](target "title") so it can be
// rewritten in place. Group 2 is the target. Only targets the Markdown parser
// reports as images are touched.
var imageRef = regexp.MustCompile(`!\[([^\]\n]*)\]\(([^)\s]+)((?:\s+"[^"\n]*")?)\)`)

// imgTag matches an opening <img> tag.
var imgTag = regexp.MustCompile(`(?i)<img\b[^>]*>`)

// Prefix makes every relative image target live under prefix: "prefix/x.png",
// or "/prefix/x.png" when absolute is set. Targets that are already absolute
// or URLs are left alone, as is everything inside fenced code blocks.
func Prefix(md, prefix string, absolute bool) string {
	fix := func(target string) string {
		if !isRelative(target) {
			return target
		}
		out := strings.Trim(prefix, "/") + "/" + target
		if absolute {
			out = "/" + out
		}
		return out
	}

	targets := imageTargets(md)
	return mdast.OutsideFences(md, func(text string) string {
		text = imageRef.ReplaceAllStringFunc(text, func(m string) string {
			sub := imageRef.FindStringSubmatch(m)
			if !targets[sub[2]] {
				return m
			}
			return "![" + sub[1] + "](" + fix(sub[2]) + sub[3] + ")"
		})
		return imgTag.ReplaceAllStringFunc(text, func(tag string) string {
			return rewriteTag(tag, fix)
		})
	})
}

// First returns the target of the first Markdown image outside fenced code,
// or "" when there is none.
func First(md string) string {
	for dest := range mdast.Parse(md).Images() {
		return dest
	}
	return ""
}

// AddPlaceholders puts a bold "ADD target HERE" line before every Markdown
// image, for platforms where images are uploaded by hand.
func AddPlaceholders(md string) string {
	targets := imageTargets(md)
	return mdast.OutsideFences(md, func(text string) string {
		return imageRef.ReplaceAllStringFunc(text, func(m string) string {
			sub := imageRef.FindStringSubmatch(m)
			if !targets[sub[2]] {
				return m
			}
			return "**ADD " + sub[2] + " HERE**\n" + m
		})
	})
}

// imageTargets returns the destinations of the Markdown images of md.
func imageTargets(md string) map[string]bool {
	targets := make(map[string]bool)
	for dest := range mdast.Parse(md).Images() {
		targets[dest] = true
	}
	return targets
}

// isRelative reports whether target is a path relative to the post.
func isRelative(target string) bool {
	if target == "" || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "//") {
		return false
	}
	if strings.Contains(target, "://") || strings.HasPrefix(target, "data:") {
		return false
	}
	return !path.IsAbs(target)
}
