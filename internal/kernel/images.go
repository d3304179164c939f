package kernel

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/alnah/go-mdpost/internal/fileutil"
)

// SerializedDir is the per-document directory holding image outputs.
const SerializedDir = "serialized"

// ImageStore writes image outputs of one document under
// {root}/{canonical}/serialized. The directory belongs to a single render.
type ImageStore struct {
	dir string
}

// NewImageStore returns the store for a document.
func NewImageStore(root, canonical string) *ImageStore {
	return &ImageStore{dir: filepath.Join(root, canonical, SerializedDir)}
}

// Dir returns the serialized directory.
func (s *ImageStore) Dir() string { return s.dir }

// Reset deletes images left by a previous render.
func (s *ImageStore) Reset() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("%w: removing %s: %v", ErrImageSerialize, s.dir, err)
	}
	return nil
}

// Save decodes a base64 PNG, writes it as {block}-{index}.png and returns
// the Markdown reference relative to the document's image directory.
func (s *ImageStore) Save(block, index int, b64 string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, b64)
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageSerialize, err)
	}

	id := fmt.Sprintf("%d-%d", block, index)
	name := id + ".png"
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageSerialize, err)
	}
	return fmt.Sprintf("![%s](%s/%s)", id, SerializedDir, name), nil
}
