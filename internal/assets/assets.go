// Package assets ships the footer template and the preview stylesheet. A
// project overrides either one by keeping its own copy at the same relative
// path under its assets directory.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

//go:embed styles/default.css templates/footer.md
var builtin embed.FS

// Asset is the path of a shipped file relative to an assets directory.
type Asset string

const (
	Footer Asset = "templates/footer.md"
	Style  Asset = "styles/default.css"
)

// ErrInvalidDir reports an assets directory that cannot be opened.
var ErrInvalidDir = errors.New("invalid assets directory")

// Load returns the project copy of a when dir holds one and the shipped
// copy otherwise. An empty dir selects the shipped copy. Reads never leave
// dir, symlinks included.
func Load(dir string, a Asset) (string, error) {
	if dir != "" {
		content, err := loadFrom(dir, a)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return content, err
		}
	}
	content, err := builtin.ReadFile(string(a))
	if err != nil {
		return "", fmt.Errorf("reading shipped %s: %w", a, err)
	}
	return string(content), nil
}

func loadFrom(dir string, a Asset) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrInvalidDir, dir)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}
	defer root.Close()

	content, err := root.ReadFile(string(a))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", a, err)
	}
	return string(content), nil
}
