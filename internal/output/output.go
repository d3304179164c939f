// Package output turns executed blocks back into Markdown: console output
// fragments after each executed fence, hidden fences removed and fence info
// strings reduced to their language.
package output

import (
	"fmt"
	"strings"

	"github.com/alnah/go-mdpost/internal/executor"
	"github.com/alnah/go-mdpost/internal/kernel"
	"github.com/alnah/go-mdpost/internal/mdast"
)

// Format renders outputs as numbered console output sections. Parts are
// trimmed and empty ones dropped; plain text goes in a txt fence, HTML and
// images are emitted raw. It returns "" when nothing remains.
func Format(outputs []kernel.Output) string {
	parts := make([]kernel.Output, 0, len(outputs))
	for _, o := range outputs {
		o.Content = strings.TrimSpace(o.Content)
		if o.Content == "" {
			continue
		}
		parts = append(parts, o)
	}
	if len(parts) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for i, p := range parts {
		fmt.Fprintf(&sb, "\n**Console output (%d/%d):**\n\n", i+1, len(parts))
		if p.Kind == kernel.KindPlain {
			sb.WriteString("```txt\n")
			sb.WriteString(p.Content)
			sb.WriteString("\n```\n")
			continue
		}
		sb.WriteString(p.Content)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Reinsert rebuilds the source of doc with each executed block followed by
// its formatted outputs. With dropHidden, fences marked hide are dropped
// whether they ran or not; the output of those that ran is kept. Every fence
// keeps only its language in the info string. blocks must be the executor
// result for doc's blocks, in order.
func Reinsert(doc *mdast.Document, blocks []executor.Block, dropHidden bool) (string, error) {
	src := doc.Blocks()
	if len(src) != len(blocks) {
		return "", fmt.Errorf("%w: %d blocks, %d executed", mdast.ErrBlockCountMismatch, len(src), len(blocks))
	}

	replacements := make([]string, len(blocks))
	for i, b := range blocks {
		if b.Start != src[i].Start || b.End != src[i].End {
			return "", fmt.Errorf("%w: block %d does not belong to this document", mdast.ErrBlockCountMismatch, i)
		}

		var sb strings.Builder
		if !(dropHidden && b.Parsed.Attrs.Hide) {
			fence := stripInfo(doc.Fence(src[i]), src[i], b.Parsed.Lang)
			sb.WriteString(fence)
			if b.Executed && !strings.HasSuffix(fence, "\n") {
				sb.WriteString("\n")
			}
		}
		if b.Executed {
			sb.WriteString(Format(b.Outputs))
		}
		replacements[i] = sb.String()
	}
	return doc.ReplaceBlocks(replacements)
}

// stripInfo replaces the info string of fence with lang.
func stripInfo(fence string, b mdast.CodeBlock, lang string) string {
	if b.InfoStart == b.InfoEnd {
		return fence
	}
	start, end := b.InfoStart-b.Start, b.InfoEnd-b.Start
	return fence[:start] + lang + fence[end:]
}

// ApplyLanguageMap renames fence languages: every top-level fence whose
// language is a key of mapping gets the mapped language instead.
func ApplyLanguageMap(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	doc := mdast.Parse(text)
	blocks := doc.Blocks()

	replacements := make([]string, len(blocks))
	for i, b := range blocks {
		fence := doc.Fence(b)
		replacements[i] = fence
		lang, rest, _ := strings.Cut(b.Info, " ")
		info, ok := mapping[lang]
		if !ok || lang == "" {
			continue
		}
		if rest != "" {
			info += " " + rest
		}
		replacements[i] = fence[:b.InfoStart-b.Start] + info + fence[b.InfoEnd-b.Start:]
	}
	out, _ := doc.ReplaceBlocks(replacements)
	return out
}
