package notebook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mdpost/internal/executor"
	"github.com/alnah/go-mdpost/internal/fileutil"
	"github.com/alnah/go-mdpost/internal/mdast"
)

// Source extensions.
const (
	ExtMarkdown = ".md"
	ExtNotebook = ".ipynb"
	ExtPercent  = ".py"
)

// Load reads a source file and returns it as Markdown.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the post source chosen by the caller
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMarkdown, "":
		return string(data), nil
	case ExtNotebook:
		nb, err := ParseIPYNB(data, nil)
		if err != nil {
			return "", err
		}
		return nb.Markdown(), nil
	case ExtPercent:
		return ParsePercent(string(data)).Markdown(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// PairedPath returns the notebook that holds executed outputs for source:
// the source itself when it is a notebook, else a sibling with the same
// stem. It returns "" when there is none.
func PairedPath(source string) string {
	if strings.EqualFold(filepath.Ext(source), ExtNotebook) {
		return source
	}
	candidate := strings.TrimSuffix(source, filepath.Ext(source)) + ExtNotebook
	if fileutil.FileExists(candidate) {
		return candidate
	}
	return ""
}

// Match pairs the runnable blocks of a document with the code cells of an
// executed notebook. It succeeds only when both hold the same number of
// cells with the same trimmed sources, in which case each runnable block
// carries the stored outputs of its cell.
func Match(blocks []mdast.CodeBlock, nb *Notebook) ([]executor.Block, bool, error) {
	cells := nb.CodeCells()
	out := make([]executor.Block, len(blocks))
	next := 0
	for i, cb := range blocks {
		info, err := mdast.ParseInfo(cb.Info)
		if err != nil {
			return nil, false, fmt.Errorf("block %d: %w", cb.Index, err)
		}
		out[i] = executor.Block{CodeBlock: cb, Parsed: info}
		if !executor.Runnable(info) {
			continue
		}
		if next >= len(cells) || strings.TrimSpace(cells[next].Source) != strings.TrimSpace(cb.Text) {
			return nil, false, nil
		}
		out[i].Executed = true
		out[i].Outputs = cells[next].Outputs
		next++
	}
	if next != len(cells) {
		return nil, false, nil
	}
	return out, true, nil
}
