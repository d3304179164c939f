package mdpost

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestResolvePoolSize - Worker count resolution
// ---------------------------------------------------------------------------

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{
			name:    "explicit takes priority",
			workers: 4,
			want:    4,
		},
		{
			name:    "explicit=1 for sequential",
			workers: 1,
			want:    1,
		},
		{
			name:    "zero uses auto calculation",
			workers: 0,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
		{
			name:    "negative uses auto calculation",
			workers: -3,
			want:    min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolvePoolSize(tt.workers)
			if got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestResolvePoolSize_Bounds(t *testing.T) {
	t.Parallel()

	got := ResolvePoolSize(0)
	if got < MinPoolSize || got > MaxPoolSize {
		t.Errorf("ResolvePoolSize(0) = %d, want within [%d, %d]", got, MinPoolSize, MaxPoolSize)
	}
}

// ---------------------------------------------------------------------------
// TestRenderAll - Batch rendering
// ---------------------------------------------------------------------------

func TestRenderAll(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, nil)

	var inputs []Input
	for i := range 5 {
		md := "---\ntitle: post " + strconv.Itoa(i) + "\ndescription: d\n---\n\nBody\n"
		inputs = append(inputs, Input{Path: writePost(t, "post.md", md)})
	}
	inputs = append(inputs, Input{Path: writePost(t, "post.md", "---\ntitle: t\n---\n")})

	results := r.RenderAll(context.Background(), inputs, 3)
	if len(results) != len(inputs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(inputs))
	}

	for i, res := range results[:5] {
		if res.Err != nil {
			t.Errorf("results[%d].Err = %v", i, res.Err)
			continue
		}
		if res.Input.Path != inputs[i].Path {
			t.Errorf("results[%d] out of order", i)
		}
		if want := "post " + strconv.Itoa(i); res.Result.Title != want {
			t.Errorf("results[%d].Title = %q, want %q", i, res.Result.Title, want)
		}
	}
	if last := results[5]; !errors.Is(last.Err, ErrMissingField) || last.Result != nil {
		t.Errorf("failing input: %+v", last)
	}
}

func TestRenderAll_Empty(t *testing.T) {
	t.Parallel()

	if got := newTestRenderer(t, nil).RenderAll(context.Background(), nil, 2); got != nil {
		t.Errorf("RenderAll(nil) = %v, want nil", got)
	}
}

func TestRenderAll_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := []Input{
		{Markdown: "---\ntitle: a\ndescription: d\n---\n"},
		{Markdown: "---\ntitle: b\ndescription: d\n---\n"},
	}
	for i, res := range newTestRenderer(t, nil).RenderAll(ctx, inputs, 1) {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("results[%d].Err = %v, want context.Canceled", i, res.Err)
		}
		if !strings.HasPrefix(res.Input.Markdown, "---\ntitle: ") {
			t.Errorf("results[%d].Input not kept", i)
		}
	}
}
