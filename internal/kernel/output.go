package kernel

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Kind classifies a normalized output.
type Kind int

const (
	KindPlain Kind = iota
	KindHTML
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindImage:
		return "image"
	default:
		return "plain"
	}
}

// Output is one normalized execution output.
type Output struct {
	Kind    Kind
	Content string
}

// Mime types understood in rich results.
const (
	MimePNG   = "image/png"
	MimeHTML  = "text/html"
	MimePlain = "text/plain"
)

// richOrder is the tie-break between payloads of one rich result: the first
// entry present wins.
var richOrder = []struct {
	mime string
	kind Kind
}{
	{MimePNG, KindImage},
	{MimeHTML, KindHTML},
	{MimePlain, KindPlain},
}

// Classify picks the payload of a rich result. ok is false when the bundle
// holds none of the supported types.
func Classify(data map[string]any) (kind Kind, payload string, ok bool) {
	for _, m := range richOrder {
		if s := MimeText(data[m.mime]); s != "" {
			return m.kind, s, true
		}
	}
	return KindPlain, "", false
}

// Normalize converts one message into an output. block and index name
// serialized images; images may be nil to embed them inline. ok is false
// for messages that carry no displayable content.
func Normalize(msg Message, images *ImageStore, block, index int) (out Output, ok bool, err error) {
	switch msg.Type {
	case MsgStream:
		text := strings.TrimRight(ansi.Strip(MimeText(msg.Content.Text)), " \t\r\n")
		if text == "" {
			return Output{}, false, nil
		}
		return Output{Kind: KindPlain, Content: text + "\n"}, true, nil

	case MsgDisplayData, MsgExecuteResult:
		kind, payload, found := Classify(msg.Content.Data)
		if !found {
			return Output{}, false, nil
		}
		if kind != KindImage {
			return Output{Kind: kind, Content: payload}, true, nil
		}
		if images == nil {
			return Output{Kind: KindImage, Content: InlineImage(payload)}, true, nil
		}
		ref, err := images.Save(block, index, payload)
		if err != nil {
			return Output{}, false, err
		}
		return Output{Kind: KindHTML, Content: ref}, true, nil

	case MsgError:
		return Output{Kind: KindPlain, Content: ansi.Strip(strings.Join(msg.Content.Traceback, "\n"))}, true, nil
	}
	return Output{}, false, nil
}

// InlineImage embeds a base64 PNG as an img tag.
func InlineImage(b64 string) string {
	return `<img src="data:image/png;base64, ` + strings.TrimSpace(b64) + `"/>`
}
