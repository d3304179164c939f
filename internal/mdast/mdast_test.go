package mdast_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/alnah/go-mdpost/internal/mdast"
)

const sampleDoc = "## Intro\n\n" +
	"See [docs](https://example.com/docs) and ![img](img/a.png).\n\n" +
	"```python id=first\n" +
	"x = 1\n" +
	"```\n\n" +
	"- item with [nested](https://example.com/nested)\n\n" +
	"```\n" +
	"[not a link](https://example.com/code)\n" +
	"```\n\n" +
	"~~~~sh\n" +
	"echo ```\n" +
	"~~~~\n" +
	"Tail.\n"

// ---------------------------------------------------------------------------
// TestBlocks - Top-level fences with exact spans
// ---------------------------------------------------------------------------

func TestBlocks(t *testing.T) {
	t.Parallel()

	doc := mdast.Parse(sampleDoc)
	blocks := doc.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3", len(blocks))
	}

	tests := []struct {
		info  string
		lang  string
		text  string
		fence string
	}{
		{"python id=first", "python", "x = 1\n", "```python id=first\nx = 1\n```\n"},
		{"", "", "[not a link](https://example.com/code)\n", "```\n[not a link](https://example.com/code)\n```\n"},
		{"sh", "sh", "echo ```\n", "~~~~sh\necho ```\n~~~~\n"},
	}
	for i, tt := range tests {
		b := blocks[i]
		if b.Index != i {
			t.Errorf("block %d: Index = %d", i, b.Index)
		}
		if b.Info != tt.info || b.Lang != tt.lang || b.Text != tt.text {
			t.Errorf("block %d: info=%q lang=%q text=%q", i, b.Info, b.Lang, b.Text)
		}
		if got := doc.Fence(b); got != tt.fence {
			t.Errorf("block %d: fence = %q, want %q", i, got, tt.fence)
		}
		if got := sampleDoc[b.InfoStart:b.InfoEnd]; got != tt.info {
			t.Errorf("block %d: info span = %q, want %q", i, got, tt.info)
		}
	}
}

func TestBlocksSkipsNested(t *testing.T) {
	t.Parallel()

	src := "> ```python\n> quoted()\n> ```\n\n- ```python\n  listed()\n  ```\n"
	if n := len(mdast.Parse(src).Blocks()); n != 0 {
		t.Errorf("len(blocks) = %d, want 0", n)
	}
}

func TestBlocksEmptyAndUnclosed(t *testing.T) {
	t.Parallel()

	src := "```\n```\ntext\n```python\nprint(1)\n"
	doc := mdast.Parse(src)
	blocks := doc.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if got := doc.Fence(blocks[0]); got != "```\n```\n" {
		t.Errorf("empty fence = %q", got)
	}
	if got := doc.Fence(blocks[1]); got != "```python\nprint(1)\n" {
		t.Errorf("unclosed fence = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestLinks - Depth-first link targets outside code
// ---------------------------------------------------------------------------

func TestLinks(t *testing.T) {
	t.Parallel()

	got := slices.Collect(mdast.Parse(sampleDoc).Links())
	want := []string{"https://example.com/docs", "https://example.com/nested"}
	if !slices.Equal(got, want) {
		t.Errorf("links = %v, want %v", got, want)
	}
}

func TestLinksStopsEarly(t *testing.T) {
	t.Parallel()

	var got []string
	for link := range mdast.Parse(sampleDoc).Links() {
		got = append(got, link)
		break
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestImages(t *testing.T) {
	t.Parallel()

	doc := mdast.Parse("![a](a.png) `![b](b.png)` [![c](c.svg)](https://ci.example)\n\n```\n![d](d.png)\n```\n")
	got := slices.Collect(doc.Images())
	want := []string{"a.png", "c.svg"}
	if !slices.Equal(got, want) {
		t.Errorf("images = %v, want %v", got, want)
	}
}

func TestOutsideFences(t *testing.T) {
	t.Parallel()

	src := "a\n\n```\na\n```\n\na\n"
	got := mdast.OutsideFences(src, strings.ToUpper)
	if want := "A\n\n```\na\n```\n\nA\n"; got != want {
		t.Errorf("OutsideFences() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestHeadings - Levels and text
// ---------------------------------------------------------------------------

func TestHeadings(t *testing.T) {
	t.Parallel()

	doc := mdast.Parse("# Some heading\n\ntext\n\nSetext\n------\n\n```\n# not a heading\n```\n")
	got := doc.Headings()
	want := []mdast.Heading{{Level: 1, Text: "Some heading"}, {Level: 2, Text: "Setext"}}
	if !slices.Equal(got, want) {
		t.Errorf("headings = %+v, want %+v", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestReplaceBlocks - Positional substitution
// ---------------------------------------------------------------------------

func TestReplaceBlocks(t *testing.T) {
	t.Parallel()

	src := "a\n```python\n1\n```\nb\n```python\n1\n```\nc\n"
	doc := mdast.Parse(src)

	out, err := doc.ReplaceBlocks([]string{"FIRST\n", "SECOND\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a\nFIRST\nb\nSECOND\nc\n" {
		t.Errorf("output = %q", out)
	}

	_, err = doc.ReplaceBlocks([]string{"only one"})
	if !errors.Is(err, mdast.ErrBlockCountMismatch) {
		t.Fatalf("errors.Is(err, ErrBlockCountMismatch) = false, got: %v", err)
	}
}

func TestReplaceBlocksIdentity(t *testing.T) {
	t.Parallel()

	doc := mdast.Parse(sampleDoc)
	var fences []string
	for _, b := range doc.Blocks() {
		fences = append(fences, doc.Fence(b))
	}
	out, err := doc.ReplaceBlocks(fences)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != sampleDoc {
		t.Errorf("identity replacement changed text:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// TestParseInfo - Typed attributes
// ---------------------------------------------------------------------------

func TestParseInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		info    string
		want    mdast.Info
		wantErr bool
	}{
		{
			name: "empty",
			info: "",
			want: mdast.Info{},
		},
		{
			name: "language only",
			info: "python",
			want: mdast.Info{Lang: "python", Annotated: true},
		},
		{
			name: "comma separated",
			info: "python skip=True,id=setup",
			want: mdast.Info{Lang: "python", Annotated: true, Attrs: mdast.Attributes{Skip: true, ID: "setup"}},
		},
		{
			name: "space separated and bare key",
			info: "python hide skip=false",
			want: mdast.Info{Lang: "python", Annotated: true, Attrs: mdast.Attributes{Hide: true}},
		},
		{
			name: "attributes without language",
			info: "skip=1",
			want: mdast.Info{Annotated: true, Attrs: mdast.Attributes{Skip: true}},
		},
		{
			name:    "invalid boolean",
			info:    "python skip=maybe",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := mdast.ParseInfo(tt.info)
			if tt.wantErr {
				if !errors.Is(err, mdast.ErrInvalidAttribute) {
					t.Fatalf("errors.Is(err, ErrInvalidAttribute) = false, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Lang != tt.want.Lang || got.Annotated != tt.want.Annotated ||
				got.Attrs.Skip != tt.want.Attrs.Skip || got.Attrs.Hide != tt.want.Attrs.Hide ||
				got.Attrs.ID != tt.want.Attrs.ID {
				t.Errorf("ParseInfo(%q) = %+v, want %+v", tt.info, got, tt.want)
			}
		})
	}
}

func TestParseInfoExtra(t *testing.T) {
	t.Parallel()

	got, err := mdast.ParseInfo("python title='demo.py'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Attrs.Extra["title"] != "demo.py" {
		t.Errorf("Extra = %v", got.Attrs.Extra)
	}
}

func TestNormalizeLineEndings(t *testing.T) {
	t.Parallel()

	if got := mdast.NormalizeLineEndings("a\r\nb\rc\n"); got != "a\nb\nc\n" {
		t.Errorf("got %q", got)
	}
	if strings.Contains(mdast.NormalizeLineEndings("x\r\n"), "\r") {
		t.Error("CR left behind")
	}
}
