package kernel_test

import (
	"errors"
	"testing"

	"github.com/alnah/go-mdpost/internal/kernel"
)

// ---------------------------------------------------------------------------
// TestClassify - Rich result priority
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     map[string]any
		wantKind kernel.Kind
		wantText string
		wantOK   bool
	}{
		{
			name:     "image beats html and plain",
			data:     map[string]any{"image/png": "AAA", "text/html": "<p>", "text/plain": "p"},
			wantKind: kernel.KindImage,
			wantText: "AAA",
			wantOK:   true,
		},
		{
			name:     "html beats plain",
			data:     map[string]any{"text/html": "<p>", "text/plain": "p"},
			wantKind: kernel.KindHTML,
			wantText: "<p>",
			wantOK:   true,
		},
		{
			name:     "plain only",
			data:     map[string]any{"text/plain": []any{"a\n", "b"}},
			wantKind: kernel.KindPlain,
			wantText: "a\nb",
			wantOK:   true,
		},
		{
			name:     "empty image falls through",
			data:     map[string]any{"image/png": "", "text/plain": "p"},
			wantKind: kernel.KindPlain,
			wantText: "p",
			wantOK:   true,
		},
		{
			name:   "unsupported bundle",
			data:   map[string]any{"application/json": "{}"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			kind, text, ok := kernel.Classify(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if kind != tt.wantKind || text != tt.wantText {
				t.Errorf("Classify() = (%v, %q), want (%v, %q)", kind, text, tt.wantKind, tt.wantText)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestNormalize - Message to output conversion
// ---------------------------------------------------------------------------

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		msg    kernel.Message
		want   kernel.Output
		wantOK bool
	}{
		{
			name:   "stream trailing whitespace collapsed",
			msg:    kernel.Message{Type: kernel.MsgStream, Content: kernel.Content{Text: "hello  \n\n"}},
			want:   kernel.Output{Kind: kernel.KindPlain, Content: "hello\n"},
			wantOK: true,
		},
		{
			name:   "stream ansi stripped",
			msg:    kernel.Message{Type: kernel.MsgStream, Content: kernel.Content{Text: "\x1b[1mbold\x1b[0m"}},
			want:   kernel.Output{Kind: kernel.KindPlain, Content: "bold\n"},
			wantOK: true,
		},
		{
			name:   "blank stream dropped",
			msg:    kernel.Message{Type: kernel.MsgStream, Content: kernel.Content{Text: "\n"}},
			wantOK: false,
		},
		{
			name:   "execute input ignored",
			msg:    kernel.Message{Type: kernel.MsgExecuteInput},
			wantOK: false,
		},
		{
			name: "error traceback joined",
			msg: kernel.Message{Type: kernel.MsgError,
				Content: kernel.Content{Traceback: []string{"\x1b[31mZeroDivisionError\x1b[0m", "  line 1"}}},
			want:   kernel.Output{Kind: kernel.KindPlain, Content: "ZeroDivisionError\n  line 1"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok, err := kernel.Normalize(tt.msg, nil, 0, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeBadImage(t *testing.T) {
	t.Parallel()

	store := kernel.NewImageStore(t.TempDir(), "post")
	msg := kernel.Message{Type: kernel.MsgDisplayData, Content: kernel.Content{Data: map[string]any{"image/png": "!!not base64"}}}

	_, _, err := kernel.Normalize(msg, store, 0, 0)
	if !errors.Is(err, kernel.ErrImageSerialize) {
		t.Fatalf("errors.Is(err, ErrImageSerialize) = false, got: %v", err)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	for kind, want := range map[kernel.Kind]string{
		kernel.KindPlain: "plain",
		kernel.KindHTML:  "html",
		kernel.KindImage: "image",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
