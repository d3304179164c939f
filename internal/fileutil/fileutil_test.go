package fileutil_test

// Notes:
// - WriteFileAtomic write/close failure branches are not tested: forcing
//   disk write failures is platform-specific.

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/alnah/go-mdpost/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{
			name:      "valid extension md",
			extension: "md",
		},
		{
			name:      "empty extension",
			extension: "",
			wantErr:   fileutil.ErrExtensionEmpty,
		},
		{
			name:      "forward slash path traversal",
			extension: "../etc/passwd",
			wantErr:   fileutil.ErrExtensionPathTraversal,
		},
		{
			name:      "null byte injection",
			extension: "md\x00exe",
			wantErr:   fileutil.ErrExtensionPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteFileAtomic - Atomic writes
// ---------------------------------------------------------------------------

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "post.md")

	if err := fileutil.WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomic_NoExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "README")
	if err := fileutil.WriteFileAtomic(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if !fileutil.FileExists(path) {
		t.Error("file not written")
	}
}

// ---------------------------------------------------------------------------
// TestFindFileUpwards - Parent directory search
// ---------------------------------------------------------------------------

func TestFindFileUpwards(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(root, "mdpost.yaml")
	if err := os.WriteFile(cfg, []byte("root: ."), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := fileutil.FindFileUpwards(deep, "mdpost.yaml", 6)
	if err != nil {
		t.Fatalf("FindFileUpwards() error = %v", err)
	}
	if got != cfg {
		t.Errorf("found %q, want %q", got, cfg)
	}

	_, err = fileutil.FindFileUpwards(deep, "mdpost.yaml", 1)
	if !errors.Is(err, fileutil.ErrNotFound) {
		t.Errorf("errors.Is(err, ErrNotFound) = false, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// TestCopyPNGs - Image copying keeps relative paths
// ---------------------------------------------------------------------------

func TestCopyPNGs(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	target := t.TempDir()
	for _, rel := range []string{"a.png", "serialized/0-1.png", "notes.txt"} {
		p := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	copied, err := fileutil.CopyPNGs(src, target, "my-post")
	if err != nil {
		t.Fatalf("CopyPNGs() error = %v", err)
	}
	want := []string{
		filepath.Join(target, "my-post", "a.png"),
		filepath.Join(target, "my-post", "serialized", "0-1.png"),
	}
	if !slices.Equal(copied, want) {
		t.Errorf("copied = %v, want %v", copied, want)
	}
	data, err := os.ReadFile(want[1])
	if err != nil || string(data) != "serialized/0-1.png" {
		t.Errorf("content = %q, err = %v", data, err)
	}
	if fileutil.FileExists(filepath.Join(target, "my-post", "notes.txt")) {
		t.Error("non-png file copied")
	}
}

// ---------------------------------------------------------------------------
// TestFileExists / TestDirExists / TestIsURL
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f.md")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if !fileutil.FileExists(file) {
		t.Error("FileExists(file) = false")
	}
	if fileutil.FileExists(dir) {
		t.Error("FileExists(dir) = true")
	}
	if !fileutil.DirExists(dir) {
		t.Error("DirExists(dir) = false")
	}
	if fileutil.DirExists(filepath.Join(dir, "missing")) {
		t.Error("DirExists(missing) = true")
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com", true},
		{"img/a.png", false},
		{"/abs/a.png", false},
	}
	for _, tt := range tests {
		if got := fileutil.IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
