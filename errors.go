package mdpost

import (
	"errors"

	"github.com/alnah/go-mdpost/internal/expand"
	"github.com/alnah/go-mdpost/internal/footer"
	"github.com/alnah/go-mdpost/internal/frontmatter"
	"github.com/alnah/go-mdpost/internal/kernel"
	"github.com/alnah/go-mdpost/internal/mdast"
	"github.com/alnah/go-mdpost/internal/notebook"
)

// Input validation errors. They abort the render before anything runs.
var (
	ErrNoFrontMatter      = frontmatter.ErrNoFrontMatter
	ErrInvalidFrontMatter = frontmatter.ErrInvalid
	ErrMissingField       = frontmatter.ErrMissingField
	ErrH1Heading          = errors.New("H1 level headers are not allowed")
	ErrInvalidAttribute   = mdast.ErrInvalidAttribute
	ErrBlockCountMismatch = mdast.ErrBlockCountMismatch
	ErrInvalidDirective   = expand.ErrInvalidDirective
	ErrAmbiguousSelector  = expand.ErrAmbiguousSelector
	ErrUnknownSymbol      = expand.ErrUnknownSymbol
	ErrUnsupportedSource  = notebook.ErrUnsupported
	ErrInvalidNotebook    = notebook.ErrInvalidNotebook
	ErrFooterTemplate     = footer.ErrTemplate
)

// Resource errors.
var (
	ErrReadSource     = errors.New("failed to read post source")
	ErrExpandSource   = expand.ErrSourceRead
	ErrKernelStart    = kernel.ErrStart
	ErrNoBackend      = errors.New("no interpreter backend configured")
	ErrImageSerialize = kernel.ErrImageSerialize
	ErrInvalidAssets  = errors.New("invalid asset path")
)

// Usage errors.
var (
	ErrSessionClosed = kernel.ErrSessionClosed
	ErrEmptyInput    = errors.New("input needs a path or markdown")
	ErrInvalidFlavor = errors.New("invalid flavor")
)
