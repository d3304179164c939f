package main

import (
	"context"
	"errors"
	"os"

	mdpost "github.com/alnah/go-mdpost"
	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/frontmatter"
	"github.com/alnah/go-mdpost/internal/hints"
)

// Exit codes for the mdpost CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // All posts rendered
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or post content
	ExitIO      = 3 // File not found, permission denied, write failures
	ExitKernel  = 4 // Interpreter could not be started or reached
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Interpreter errors (exit 4)
	if errors.Is(err, mdpost.ErrKernelStart) ||
		errors.Is(err, mdpost.ErrNoBackend) ||
		errors.Is(err, mdpost.ErrSessionClosed) {
		return ExitKernel
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, mdpost.ErrInvalidFlavor) ||
		errors.Is(err, mdpost.ErrInvalidAssets) ||
		errors.Is(err, mdpost.ErrNoFrontMatter) ||
		errors.Is(err, frontmatter.ErrNotAtTop) ||
		errors.Is(err, frontmatter.ErrUnclosed) ||
		errors.Is(err, mdpost.ErrInvalidFrontMatter) ||
		errors.Is(err, mdpost.ErrMissingField) ||
		errors.Is(err, mdpost.ErrH1Heading) ||
		errors.Is(err, mdpost.ErrInvalidAttribute) ||
		errors.Is(err, mdpost.ErrBlockCountMismatch) ||
		errors.Is(err, mdpost.ErrInvalidDirective) ||
		errors.Is(err, mdpost.ErrAmbiguousSelector) ||
		errors.Is(err, mdpost.ErrUnknownSymbol) ||
		errors.Is(err, mdpost.ErrUnsupportedSource) ||
		errors.Is(err, mdpost.ErrInvalidNotebook) ||
		errors.Is(err, mdpost.ErrFooterTemplate) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoPost) ||
		errors.Is(err, ErrWritePost) ||
		errors.Is(err, ErrCopyImages) ||
		errors.Is(err, mdpost.ErrReadSource) ||
		errors.Is(err, mdpost.ErrExpandSource) ||
		errors.Is(err, mdpost.ErrImageSerialize) {
		return ExitIO
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var be *batchError
	switch {
	case err == nil, errors.As(err, &be):
		return ""
	case errors.Is(err, mdpost.ErrKernelStart), errors.Is(err, mdpost.ErrNoBackend):
		return hints.ForKernelStart()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound()
	case errors.Is(err, mdpost.ErrH1Heading):
		return hints.ForH1Heading()
	case errors.Is(err, mdpost.ErrNoFrontMatter),
		errors.Is(err, frontmatter.ErrNotAtTop),
		errors.Is(err, frontmatter.ErrUnclosed),
		errors.Is(err, mdpost.ErrMissingField),
		errors.Is(err, mdpost.ErrInvalidFrontMatter):
		return hints.ForFrontMatter()
	case errors.Is(err, mdpost.ErrExpandSource):
		return hints.ForExpand()
	case errors.Is(err, ErrWritePost), errors.Is(err, ErrCopyImages):
		return hints.ForOutputDirectory()
	}
	return ""
}
