package preview_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-mdpost/internal/assets"
	"github.com/alnah/go-mdpost/internal/preview"
)

// ---------------------------------------------------------------------------
// TestRender - HTML page generation
// ---------------------------------------------------------------------------

func TestRender(t *testing.T) {
	t.Parallel()

	style, err := assets.Load("", assets.Style)
	if err != nil {
		t.Fatal(err)
	}
	r := preview.New(style)

	body := "## Setup\n\n```python\nprint(1)\n```\n\n**Console output (1/1):**\n\n<b>raw</b>\n"
	got, err := r.Render(context.Background(), "A <post>", body)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{
		"<title>A &lt;post&gt;</title>",
		"<h1>A &lt;post&gt;</h1>",
		`<h2 id="setup">Setup</h2>`,
		"<b>raw</b>",
		"<style>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Index(got, "<style>") > strings.Index(got, "</head>") {
		t.Error("style not injected into head")
	}
}

func TestRenderStyleCannotCloseTag(t *testing.T) {
	t.Parallel()

	got, err := preview.New("body{}</style><script>x</script>").Render(context.Background(), "t", "x")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "</style><script>") {
		t.Error("stylesheet escaped its style block")
	}
}

func TestRenderCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := preview.New("").Render(ctx, "t", "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}
