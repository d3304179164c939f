package notebook

import (
	"strings"
)

const (
	cellMarker   = "# %%"
	headerMarker = "# ---"
)

// ParsePercent reads a percent-format script: cells start at "# %%" lines,
// "# %% [markdown]" cells hold commented Markdown, and a leading block of
// commented lines between "# ---" delimiters is the front matter.
func ParsePercent(src string) *Notebook {
	nb := &Notebook{Language: defaultLanguage}
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	i := 0
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == headerMarker {
		for j := 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) != headerMarker {
				continue
			}
			header := []string{"---"}
			for _, l := range lines[1:j] {
				header = append(header, uncomment(l))
			}
			header = append(header, "---")
			nb.Cells = append(nb.Cells, Cell{Type: CellRaw, Source: strings.Join(header, "\n")})
			i = j + 1
			break
		}
	}

	var (
		kind = CellCode
		buf  []string
	)
	flush := func() {
		source := strings.Trim(strings.Join(buf, "\n"), "\n")
		buf = nil
		if source == "" {
			return
		}
		nb.Cells = append(nb.Cells, Cell{Type: kind, Source: source})
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		if marker, ok := strings.CutPrefix(line, cellMarker); ok {
			flush()
			kind = CellCode
			if tag := strings.TrimSpace(marker); strings.HasPrefix(tag, "[markdown]") || strings.HasPrefix(tag, "[md]") {
				kind = CellMarkdown
			}
			continue
		}
		if kind == CellMarkdown {
			line = uncomment(line)
		}
		buf = append(buf, line)
	}
	flush()
	nb.trimTrailing()
	return nb
}

func uncomment(line string) string {
	if rest, ok := strings.CutPrefix(line, "# "); ok {
		return rest
	}
	return strings.TrimPrefix(line, "#")
}
