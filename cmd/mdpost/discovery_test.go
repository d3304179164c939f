package main

// Notes:
// - discoverPosts: we test the three argument shapes (source file, post
//   directory, directory of posts), deduplication, and the failure modes.
// - Paths are compared after filepath.Abs since discovery returns absolute
//   paths.

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	mdpost "github.com/alnah/go-mdpost"
)

func mkPost(t *testing.T, root, name, file string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte("---\ntitle: t\ndescription: d\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ---------------------------------------------------------------------------
// TestDiscoverPosts - Argument resolution
// ---------------------------------------------------------------------------

func TestDiscoverPosts(t *testing.T) {
	t.Parallel()

	t.Run("source file", func(t *testing.T) {
		t.Parallel()

		src := mkPost(t, t.TempDir(), "a", "post.ipynb")
		got, err := discoverPosts([]string{src})
		if err != nil {
			t.Fatalf("discoverPosts() error = %v", err)
		}
		if len(got) != 1 || got[0] != src {
			t.Errorf("discoverPosts() = %v, want [%s]", got, src)
		}
	})

	t.Run("post directory prefers markdown", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		md := mkPost(t, root, "a", "post.md")
		mkPost(t, root, "a", "post.ipynb")

		got, err := discoverPosts([]string{filepath.Dir(md)})
		if err != nil {
			t.Fatalf("discoverPosts() error = %v", err)
		}
		if len(got) != 1 || got[0] != md {
			t.Errorf("discoverPosts() = %v, want [%s]", got, md)
		}
	})

	t.Run("directory of posts", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		a := mkPost(t, root, "a", "post.md")
		b := mkPost(t, root, "b", "post.py")
		mkPost(t, root, ".hidden", "post.md")
		if err := os.MkdirAll(filepath.Join(root, "drafts"), 0o755); err != nil {
			t.Fatal(err)
		}

		got, err := discoverPosts([]string{root})
		if err != nil {
			t.Fatalf("discoverPosts() error = %v", err)
		}
		if len(got) != 2 || got[0] != a || got[1] != b {
			t.Errorf("discoverPosts() = %v, want [%s %s]", got, a, b)
		}
	})

	t.Run("duplicates removed", func(t *testing.T) {
		t.Parallel()

		src := mkPost(t, t.TempDir(), "a", "post.md")
		got, err := discoverPosts([]string{src, filepath.Dir(src)})
		if err != nil {
			t.Fatalf("discoverPosts() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("discoverPosts() = %v, want one post", got)
		}
	})
}

func TestDiscoverPosts_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	txt := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing path", []string{filepath.Join(root, "nope")}, os.ErrNotExist},
		{"unsupported extension", []string{txt}, mdpost.ErrUnsupportedSource},
		{"no post in directory", []string{root}, ErrNoPost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := discoverPosts(tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("discoverPosts() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestValidateWorkers - Worker bounds
// ---------------------------------------------------------------------------

func TestValidateWorkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"auto", 0, false},
		{"one", 1, false},
		{"maximum", mdpost.MaxPoolSize, false},
		{"negative", -1, true},
		{"above maximum", mdpost.MaxPoolSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateWorkers(tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateWorkers(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidWorkerCount) {
				t.Errorf("error = %v, want ErrInvalidWorkerCount", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestOutputPaths - Output naming
// ---------------------------------------------------------------------------

func TestOutputPaths(t *testing.T) {
	t.Parallel()

	out := outputPath(filepath.Join("blog", "content"), "my-post")
	if want := filepath.Join("blog", "content", "my-post.md"); out != want {
		t.Errorf("outputPath() = %q, want %q", out, want)
	}
	if got, want := previewPath(out), filepath.Join("blog", "content", "my-post.html"); got != want {
		t.Errorf("previewPath() = %q, want %q", got, want)
	}
}
