package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mdpost "github.com/alnah/go-mdpost"
	"github.com/alnah/go-mdpost/internal/notebook"
)

// Sentinel errors for post discovery.
var (
	ErrNoPost             = errors.New("no post source found")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)

// sourceNames are the entry points of a post directory, in lookup order.
// A post.md with a paired post.ipynb is found as post.md.
var sourceNames = []string{"post.md", "post.ipynb", "post.py"}

// discoverPosts resolves arguments to post sources. An argument is a source
// file, a post directory, or a directory whose subdirectories are posts.
// No argument means the current directory.
func discoverPosts(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var found []string
	seen := make(map[string]bool)
	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			found = append(found, abs)
		}
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := validateSourceExtension(arg); err != nil {
				return nil, err
			}
			if err := add(arg); err != nil {
				return nil, err
			}
			continue
		}

		if src := postSource(arg); src != "" {
			if err := add(src); err != nil {
				return nil, err
			}
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
		n := 0
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if src := postSource(filepath.Join(arg, e.Name())); src != "" {
				if err := add(src); err != nil {
					return nil, err
				}
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("%w in %s (looked for %s)", ErrNoPost, arg, strings.Join(sourceNames, ", "))
		}
	}
	return found, nil
}

// postSource returns the entry point of a post directory, or "".
func postSource(dir string) string {
	for _, name := range sourceNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// validateSourceExtension checks that a file is a source the renderer reads.
func validateSourceExtension(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case notebook.ExtMarkdown, notebook.ExtNotebook, notebook.ExtPercent:
		return nil
	}
	return fmt.Errorf("%w: got %q (want .md, .ipynb or .py)", mdpost.ErrUnsupportedSource, filepath.Ext(path))
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	if n > mdpost.MaxPoolSize {
		return fmt.Errorf("%w: %d (maximum is %d)", ErrInvalidWorkerCount, n, mdpost.MaxPoolSize)
	}
	return nil
}

// outputPath returns where the rendered post is written.
func outputPath(postsDir, canonical string) string {
	return filepath.Join(postsDir, canonical+".md")
}

// previewPath returns the HTML preview path for a rendered post.
func previewPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, ".md") + ".html"
}
