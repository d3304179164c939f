// Package notebook reads sources that are not Markdown, Jupyter notebooks
// and percent-format scripts, into Markdown, and recovers the outputs stored
// in an executed notebook.
package notebook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alnah/go-mdpost/internal/kernel"
)

// Sentinel errors for notebook reading.
var (
	ErrInvalidNotebook = errors.New("invalid notebook")
	ErrUnsupported     = errors.New("unsupported source format")
)

// Cell types.
const (
	CellMarkdown = "markdown"
	CellCode     = "code"
	CellRaw      = "raw"
)

const defaultLanguage = "python"

// Cell is one notebook cell. Outputs are set only for code cells read from
// an executed notebook.
type Cell struct {
	Type    string
	Source  string
	Outputs []kernel.Output
}

// Notebook is an ordered list of cells in one language.
type Notebook struct {
	Language string
	Cells    []Cell
}

// ParseIPYNB reads a notebook document. Stored image outputs are written to
// images when it is not nil, otherwise embedded inline. Trailing cells with
// neither source nor outputs are dropped.
func ParseIPYNB(data []byte, images *kernel.ImageStore) (*Notebook, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidNotebook)
	}
	doc := gjson.ParseBytes(data)
	cells := doc.Get("cells")
	if !cells.IsArray() {
		return nil, fmt.Errorf("%w: missing cells", ErrInvalidNotebook)
	}

	nb := &Notebook{Language: language(doc)}
	code := 0
	var err error
	cells.ForEach(func(_, c gjson.Result) bool {
		cell := Cell{Type: c.Get("cell_type").String(), Source: text(c.Get("source"))}
		if cell.Type == CellCode {
			cell.Outputs, err = outputs(c.Get("outputs"), images, code)
			if err != nil {
				err = fmt.Errorf("cell %d: %w", code, err)
				return false
			}
			code++
		}
		nb.Cells = append(nb.Cells, cell)
		return true
	})
	if err != nil {
		return nil, err
	}
	nb.trimTrailing()
	return nb, nil
}

func language(doc gjson.Result) string {
	for _, path := range []string{"metadata.kernelspec.language", "metadata.language_info.name"} {
		if lang := doc.Get(path).String(); lang != "" {
			return lang
		}
	}
	return defaultLanguage
}

// text joins a notebook string field, stored either as a string or as a
// list of lines.
func text(r gjson.Result) string {
	if !r.IsArray() {
		return r.String()
	}
	var sb strings.Builder
	for _, line := range r.Array() {
		sb.WriteString(line.String())
	}
	return sb.String()
}

// outputs normalizes the stored outputs of one code cell the same way live
// kernel messages are normalized.
func outputs(list gjson.Result, images *kernel.ImageStore, block int) ([]kernel.Output, error) {
	var (
		out []kernel.Output
		err error
	)
	index := 0
	list.ForEach(func(_, o gjson.Result) bool {
		msg := kernel.Message{Type: o.Get("output_type").String()}
		switch msg.Type {
		case kernel.MsgStream:
			msg.Content.Name = o.Get("name").String()
			msg.Content.Text = text(o.Get("text"))
		case kernel.MsgDisplayData, kernel.MsgExecuteResult:
			data, _ := o.Get("data").Value().(map[string]any)
			msg.Content.Data = data
		case kernel.MsgError:
			for _, line := range o.Get("traceback").Array() {
				msg.Content.Traceback = append(msg.Content.Traceback, line.String())
			}
		}

		var (
			res kernel.Output
			ok  bool
		)
		res, ok, err = kernel.Normalize(msg, images, block, index)
		if err != nil {
			return false
		}
		index++
		if ok {
			out = append(out, res)
		}
		return true
	})
	return out, err
}

func (nb *Notebook) trimTrailing() {
	for len(nb.Cells) > 0 {
		last := nb.Cells[len(nb.Cells)-1]
		if strings.TrimSpace(last.Source) != "" || len(last.Outputs) > 0 {
			return
		}
		nb.Cells = nb.Cells[:len(nb.Cells)-1]
	}
}

// CodeCells returns the code cells in order.
func (nb *Notebook) CodeCells() []Cell {
	var out []Cell
	for _, c := range nb.Cells {
		if c.Type == CellCode {
			out = append(out, c)
		}
	}
	return out
}

// Markdown renders the notebook as Markdown: markdown and raw cells
// verbatim, code cells as fences tagged with the notebook language. Stored
// outputs are not rendered.
func (nb *Notebook) Markdown() string {
	parts := make([]string, 0, len(nb.Cells))
	for _, c := range nb.Cells {
		src := strings.TrimRight(c.Source, "\n")
		switch c.Type {
		case CellCode:
			parts = append(parts, "```"+nb.Language+"\n"+src+"\n```")
		default:
			parts = append(parts, src)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}
