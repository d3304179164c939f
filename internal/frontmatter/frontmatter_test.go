package frontmatter_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-mdpost/internal/frontmatter"
)

const samplePost = `---
title: title
description: description
tags: [go, jupyter]
mdpost:
  serialize_images: true
---
## Heading

Body text.
`

// ---------------------------------------------------------------------------
// TestLocate - Finds header delimiters
// ---------------------------------------------------------------------------

func TestLocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantErr   error
		wantClose int
	}{
		{
			name:      "header at top",
			text:      "---\na: 1\n---\nbody",
			wantClose: 2,
		},
		{
			name:      "empty header",
			text:      "---\n---\nbody",
			wantClose: 1,
		},
		{
			name:    "no header",
			text:    "# title\nbody\n",
			wantErr: frontmatter.ErrNoFrontMatter,
		},
		{
			name:    "header not at top",
			text:    "intro\n---\na: 1\n---\n",
			wantErr: frontmatter.ErrNotAtTop,
		},
		{
			name:    "missing closing delimiter",
			text:    "---\na: 1\nbody\n",
			wantErr: frontmatter.ErrUnclosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			span, err := frontmatter.Locate(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("errors.Is(err, %v) = false, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if span.OpenLine != 0 || span.CloseLine != tt.wantClose {
				t.Errorf("span = %+v, want close line %d", span, tt.wantClose)
			}
			if got := tt.text[span.BodyStart:]; got != "body" {
				t.Errorf("body = %q, want %q", got, "body")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestParse - Decodes ordered keys and typed fields
// ---------------------------------------------------------------------------

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("typed fields", func(t *testing.T) {
		t.Parallel()

		fm, err := frontmatter.Parse(samplePost)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fm.Title != "title" || fm.Description != "description" {
			t.Errorf("title/description = %q/%q", fm.Title, fm.Description)
		}
		if strings.Join(fm.Tags, ",") != "go,jupyter" {
			t.Errorf("tags = %v", fm.Tags)
		}
		want := frontmatter.Settings{ExecuteCode: true, SerializeImages: true}
		if fm.Settings != want {
			t.Errorf("settings = %+v, want %+v", fm.Settings, want)
		}
		if got := strings.Join(fm.Keys(), ","); got != "title,description,tags,mdpost" {
			t.Errorf("keys = %q", got)
		}
	})

	t.Run("defaults without settings section", func(t *testing.T) {
		t.Parallel()

		fm, err := frontmatter.Parse("---\ntitle: t\n---\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fm.Settings != frontmatter.DefaultSettings() {
			t.Errorf("settings = %+v, want defaults", fm.Settings)
		}
	})

	t.Run("legacy section name", func(t *testing.T) {
		t.Parallel()

		fm, err := frontmatter.Parse("---\njupyblog:\n  execute_code: false\n  allow_expand: true\n---\n")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fm.Settings.ExecuteCode || !fm.Settings.AllowExpand {
			t.Errorf("settings = %+v", fm.Settings)
		}
	})

	t.Run("unknown setting rejected", func(t *testing.T) {
		t.Parallel()

		_, err := frontmatter.Parse("---\nmdpost:\n  run_everything: true\n---\n")
		if !errors.Is(err, frontmatter.ErrInvalid) {
			t.Fatalf("errors.Is(err, ErrInvalid) = false, got: %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := frontmatter.Parse("---\ntitle: [unclosed\n---\n")
		if !errors.Is(err, frontmatter.ErrInvalid) {
			t.Fatalf("errors.Is(err, ErrInvalid) = false, got: %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestValidate - Requires title and description
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantField string
	}{
		{name: "complete", text: "---\ntitle: t\ndescription: d\n---\n"},
		{name: "missing title", text: "---\ndescription: d\n---\n", wantField: "title"},
		{name: "missing description", text: "---\ntitle: t\n---\n", wantField: "description"},
		{name: "empty title", text: "---\ntitle: ''\ndescription: d\n---\n", wantField: "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fm, err := frontmatter.Parse(tt.text)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			err = fm.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, frontmatter.ErrMissingField) {
				t.Fatalf("errors.Is(err, ErrMissingField) = false, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q should name %q", err, tt.wantField)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMutation - Set, Delete and reassembly keep key order
// ---------------------------------------------------------------------------

func TestMutation(t *testing.T) {
	t.Parallel()

	fm, err := frontmatter.Parse(samplePost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fm.Set("title", "new title")
	fm.Set("toc", true)
	if !fm.Delete("tags") {
		t.Error("Delete(tags) = false, want true")
	}
	if fm.Delete("tags") {
		t.Error("second Delete(tags) = true, want false")
	}
	if fm.Title != "new title" || fm.Tags != nil {
		t.Errorf("typed view not refreshed: %+v", fm)
	}

	out, err := frontmatter.Replace(samplePost, fm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "---\ntitle: new title\ndescription: description\nmdpost:\n") {
		t.Errorf("header order lost:\n%s", out)
	}
	if !strings.HasSuffix(out, "toc: true\n---\n## Heading\n\nBody text.\n") {
		t.Errorf("body not preserved:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// TestDelete - Strips the header
// ---------------------------------------------------------------------------

func TestDelete(t *testing.T) {
	t.Parallel()

	if got := frontmatter.Delete(samplePost); got != "## Heading\n\nBody text.\n" {
		t.Errorf("Delete = %q", got)
	}
	if got := frontmatter.Delete("no header\n"); got != "no header\n" {
		t.Errorf("Delete without header = %q", got)
	}
}
