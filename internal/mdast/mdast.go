// Package mdast projects Markdown text onto a read-only structure: top-level
// fenced code blocks with byte spans, headings and link targets. The
// projection is never mutated; edits go through ReplaceBlocks and the result
// is parsed again.
package mdast

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// ErrBlockCountMismatch indicates a replacement list that does not line up
// one-to-one with the document's code blocks.
var ErrBlockCountMismatch = errors.New("replacement count does not match code block count")

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// CodeBlock is a top-level fenced code block.
// Start and End delimit the whole fence, including the closing line and its
// newline. InfoStart and InfoEnd delimit the info string on the opening line.
type CodeBlock struct {
	Index     int
	Info      string
	Lang      string
	Text      string
	Start     int
	End       int
	InfoStart int
	InfoEnd   int
}

// Heading is a section heading anywhere in the document.
type Heading struct {
	Level int
	Text  string
}

// Document is the parsed projection of a Markdown text.
type Document struct {
	source []byte
	root   ast.Node
	blocks []CodeBlock
}

// Parse builds the projection of src.
func Parse(src string) *Document {
	source := []byte(src)
	root := markdown.Parser().Parse(text.NewReader(source))
	d := &Document{source: source, root: root}
	d.blocks = d.collectBlocks()
	return d
}

// Source returns the text the document was parsed from.
func (d *Document) Source() string { return string(d.source) }

// Blocks returns the top-level fenced code blocks in document order.
func (d *Document) Blocks() []CodeBlock {
	out := make([]CodeBlock, len(d.blocks))
	copy(out, d.blocks)
	return out
}

func (d *Document) collectBlocks() []CodeBlock {
	var (
		blocks []CodeBlock
		cursor int
	)
	for n := d.root.FirstChild(); n != nil; n = n.NextSibling() {
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			continue
		}
		b, ok := d.locate(fcb, cursor)
		if !ok {
			continue
		}
		b.Index = len(blocks)
		blocks = append(blocks, b)
		cursor = b.End
	}
	return blocks
}

// locate computes the byte span of a fenced block. goldmark records
// segments for the info string and content lines only, so the fence lines
// are recovered from those anchors and the source text.
func (d *Document) locate(fcb *ast.FencedCodeBlock, cursor int) (CodeBlock, bool) {
	src := d.source
	lines := fcb.Lines()

	var content bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		content.Write(seg.Value(src))
	}

	open := -1
	switch {
	case fcb.Info != nil:
		open = lineStart(src, fcb.Info.Segment.Start)
	case lines.Len() > 0:
		first := lineStart(src, lines.At(0).Start)
		if first > 0 {
			open = lineStart(src, first-1)
		}
	default:
		open = nextFenceOpener(src, cursor)
	}
	if open < cursor || !isFenceOpener(src[open:lineEnd(src, open)]) {
		open = nextFenceOpener(src, cursor)
		if open < 0 {
			return CodeBlock{}, false
		}
	}

	openEnd := lineEnd(src, open)
	line := src[open:openEnd]
	indent := len(line) - len(bytes.TrimLeft(line, " "))
	marker := line[indent]
	width := indent
	for width < len(line) && line[width] == marker {
		width++
	}
	fenceLen := width - indent

	b := CodeBlock{
		Text:      content.String(),
		Start:     open,
		InfoStart: open + width,
		InfoEnd:   open + len(bytes.TrimRight(line, " \t\r")),
	}
	if b.InfoEnd < b.InfoStart {
		b.InfoEnd = b.InfoStart
	}
	// Keep the span tight around the visible info string.
	for b.InfoStart < b.InfoEnd && (src[b.InfoStart] == ' ' || src[b.InfoStart] == '\t') {
		b.InfoStart++
	}
	b.Info = string(src[b.InfoStart:b.InfoEnd])
	if fcb.Info != nil {
		b.Lang = string(fcb.Language(src))
	}

	search := nextLine(src, openEnd)
	if lines.Len() > 0 {
		last := lines.At(lines.Len() - 1)
		search = nextLine(src, lineEnd(src, lineStart(src, last.Start)))
	}
	b.End = len(src)
	for pos := search; pos < len(src); pos = nextLine(src, lineEnd(src, pos)) {
		if isClosingFence(src[pos:lineEnd(src, pos)], marker, fenceLen) {
			b.End = nextLine(src, lineEnd(src, pos))
			break
		}
	}
	return b, true
}

func lineStart(src []byte, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// lineEnd returns the offset of the newline ending the line at pos, or
// len(src) for the last line.
func lineEnd(src []byte, pos int) int {
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(src)
}

func nextLine(src []byte, end int) int {
	if end < len(src) {
		return end + 1
	}
	return len(src)
}

func isFenceOpener(line []byte) bool {
	trimmed := bytes.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	return bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~"))
}

func nextFenceOpener(src []byte, from int) int {
	for pos := from; pos < len(src); pos = nextLine(src, lineEnd(src, pos)) {
		if isFenceOpener(src[pos:lineEnd(src, pos)]) {
			return pos
		}
	}
	return -1
}

func isClosingFence(line []byte, marker byte, minLen int) bool {
	trimmed := bytes.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == marker {
		n++
	}
	if n < minLen {
		return false
	}
	return len(bytes.TrimSpace(trimmed[n:])) == 0
}

// Headings returns every heading in document order.
func (d *Document) Headings() []Heading {
	var out []Heading
	_ = ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(d.source))
		}
		out = append(out, Heading{Level: h.Level, Text: strings.TrimSpace(sb.String())})
		return ast.WalkSkipChildren, nil
	})
	return out
}

// Links yields the destination of every inline link, depth-first. Images and
// autolinks are not links here, and fenced code is never scanned.
func (d *Document) Links() iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch node := n.(type) {
			case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.Image:
				return ast.WalkSkipChildren, nil
			case *ast.Link:
				if !yield(string(node.Destination)) {
					return ast.WalkStop, nil
				}
			}
			return ast.WalkContinue, nil
		})
	}
}

// Images yields the destination of every Markdown image, depth-first,
// including images nested in links. Fenced code is never scanned.
func (d *Document) Images() iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch node := n.(type) {
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				return ast.WalkSkipChildren, nil
			case *ast.Image:
				if !yield(string(node.Destination)) {
					return ast.WalkStop, nil
				}
			}
			return ast.WalkContinue, nil
		})
	}
}

// OutsideFences applies fn to the text between the top-level fenced code
// blocks of md and keeps the blocks verbatim.
func OutsideFences(md string, fn func(string) string) string {
	blocks := Parse(md).Blocks()
	var sb strings.Builder
	sb.Grow(len(md))
	prev := 0
	for _, b := range blocks {
		sb.WriteString(fn(md[prev:b.Start]))
		sb.WriteString(md[b.Start:b.End])
		prev = b.End
	}
	sb.WriteString(fn(md[prev:]))
	return sb.String()
}

// ReplaceBlocks substitutes each code block span with the replacement at
// the same position. Blocks are matched by offset, so identical blocks are
// never confused.
func (d *Document) ReplaceBlocks(replacements []string) (string, error) {
	if len(replacements) != len(d.blocks) {
		return "", fmt.Errorf("%w: %d blocks, %d replacements",
			ErrBlockCountMismatch, len(d.blocks), len(replacements))
	}
	var sb strings.Builder
	sb.Grow(len(d.source))
	prev := 0
	for i, b := range d.blocks {
		sb.Write(d.source[prev:b.Start])
		sb.WriteString(replacements[i])
		prev = b.End
	}
	sb.Write(d.source[prev:])
	return sb.String(), nil
}

// Fence returns the source text of a block, fence lines included.
func (d *Document) Fence(b CodeBlock) string {
	return string(d.source[b.Start:b.End])
}

// NormalizeLineEndings converts CRLF and CR line endings to LF.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
