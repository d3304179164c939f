// Package executor runs the annotated code blocks of a document, in order,
// against one interpreter session.
package executor

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/alnah/go-mdpost/internal/kernel"
	"github.com/alnah/go-mdpost/internal/mdast"
)

// Session is the part of kernel.Session the executor needs.
type Session interface {
	Execute(ctx context.Context, code string) ([]kernel.Output, error)
	Prepare(ctx context.Context, code string) error
}

// Block is a code block with its parsed info string and, when it ran, its
// outputs.
type Block struct {
	mdast.CodeBlock
	Parsed mdast.Info
	// Executed is false for blocks that were never submitted.
	Executed bool
	Outputs  []kernel.Output
}

// Executor submits blocks to a session.
type Executor struct {
	// WorkDir, when set, is created if missing and becomes the interpreter's
	// working directory before the first block runs.
	WorkDir string
	Logger  *zap.Logger
}

// Run executes every annotated, non-skipped block of blocks in document
// order and returns one Block per input block.
func (e *Executor) Run(ctx context.Context, blocks []mdast.CodeBlock, session Session) ([]Block, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if e.WorkDir != "" {
		if err := os.MkdirAll(e.WorkDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating working directory: %w", err)
		}
		if err := session.Prepare(ctx, ChdirCode(e.WorkDir)); err != nil {
			return nil, err
		}
	}

	out, err := Plan(blocks)
	if err != nil {
		return nil, err
	}
	for i := range out {
		b := &out[i]
		if !Runnable(b.Parsed) {
			continue
		}

		outputs, err := session.Execute(ctx, b.Text)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Index, err)
		}
		log.Debug("executed block",
			zap.Int("index", b.Index),
			zap.String("code", b.Text),
			zap.Int("outputs", len(outputs)))
		b.Executed = true
		b.Outputs = outputs
	}
	return out, nil
}

// Plan parses the info string of every block without running anything.
func Plan(blocks []mdast.CodeBlock) ([]Block, error) {
	out := make([]Block, len(blocks))
	for i, cb := range blocks {
		info, err := mdast.ParseInfo(cb.Info)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", cb.Index, err)
		}
		out[i] = Block{CodeBlock: cb, Parsed: info}
	}
	return out, nil
}

// Runnable reports whether a block with this info string is submitted.
// Fences without an info string are plain text.
func Runnable(info mdast.Info) bool {
	return info.Annotated && !info.Attrs.Skip
}

// ChdirCode returns the Python statement that changes the interpreter's
// working directory.
func ChdirCode(dir string) string {
	return "import os; os.chdir(" + strconv.Quote(dir) + ")"
}
