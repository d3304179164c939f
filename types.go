package mdpost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-mdpost/internal/kernel"
)

// Flavor selects the publishing platform conventions.
type Flavor string

// Supported flavors.
const (
	// FlavorHugo roots image links at the site and drops tags.
	FlavorHugo Flavor = "hugo"
	// FlavorMarkdown keeps image links relative, for platforms that import
	// plain Markdown.
	FlavorMarkdown Flavor = "markdown"
)

// ParseFlavor validates a flavor name, case-insensitively. Empty means
// FlavorMarkdown.
func ParseFlavor(s string) (Flavor, error) {
	switch Flavor(strings.ToLower(s)) {
	case "", FlavorMarkdown:
		return FlavorMarkdown, nil
	case FlavorHugo:
		return FlavorHugo, nil
	}
	return "", fmt.Errorf("%w: %q (must be hugo or markdown)", ErrInvalidFlavor, s)
}

// Input describes one render.
type Input struct {
	// Path is the post source: .md, .ipynb or a percent-format .py. The name
	// of its directory is the canonical post name.
	Path string
	// Markdown, when set, is rendered instead of the content of Path.
	Markdown string
	Flavor   Flavor
	// IncludeSource adds a link to the post sources in the footer.
	IncludeSource bool
	// SkipExecution never starts an interpreter, whatever the front matter
	// says. Outputs from a paired notebook are still used.
	SkipExecution bool
	// Expand runs the expansion pass even when the front matter does not
	// allow it.
	Expand bool
	// ImageDir holds {canonical}/serialized. Defaults to the parent of the
	// post directory, so images land next to the post.
	ImageDir string
	// WorkDir, when set, is the interpreter working directory, relative to
	// the post directory. The interpreter keeps its own otherwise.
	WorkDir string
}

// Result is a rendered post.
type Result struct {
	Markdown      string
	CanonicalName string
	Title         string
	// Header is the serialized front matter, delimiters included.
	Header string
	// Executed counts the blocks that have outputs from this render or from
	// a paired notebook.
	Executed int
	// FromNotebook is set when outputs came from a paired notebook.
	FromNotebook bool
}

// Campaign holds the UTM parameters added to outgoing links. Tagging is off
// unless Source and Medium are set.
type Campaign struct {
	Source   string
	Medium   string
	Name     string
	BaseURLs []string
}

// Project holds the blog-wide settings shared by every post.
type Project struct {
	// LanguageMapping renames fence languages, e.g. "python" to "py".
	LanguageMapping map[string]string
	// ImagePrefix is prepended to the canonical name in image links.
	ImagePrefix       string
	ImagePlaceholders bool
	Authors           []string
	// DateFormat is a dateutil format or preset for the date stamp.
	DateFormat   string
	SourceURL    string
	IssueURL     string
	CanonicalURL string
	Campaign     Campaign
}

// Backend is an interpreter connection; implement it to run code somewhere
// other than a Jupyter Server.
type Backend = kernel.Backend

// Message is one output record emitted by a Backend.
type Message = kernel.Message

// Content is the payload of a Message.
type Content = kernel.Content

// Message types a Backend emits.
const (
	MsgStream        = kernel.MsgStream
	MsgDisplayData   = kernel.MsgDisplayData
	MsgExecuteResult = kernel.MsgExecuteResult
	MsgError         = kernel.MsgError
	MsgStatus        = kernel.MsgStatus
)

// BackendFactory returns a fresh, unconnected backend for one render.
type BackendFactory func(ctx context.Context) (Backend, error)

// Option configures a Renderer.
type Option func(*Renderer)

// rendererConfig holds the options of a Renderer.
type rendererConfig struct {
	project        Project
	factory        BackendFactory
	jupyter        *kernel.JupyterConfig
	launch         []string
	startupTimeout time.Duration
	pollTimeout    time.Duration
	now            func() time.Time
	assetPath      string
	footer         *string
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithProject sets the blog-wide settings.
func WithProject(p Project) Option {
	return func(r *Renderer) {
		r.cfg.project = p
	}
}

// WithBackendFactory runs code on backends built by f. It takes precedence
// over WithJupyterServer and WithLocalServer.
func WithBackendFactory(f BackendFactory) Option {
	return func(r *Renderer) {
		r.cfg.factory = f
	}
}

// WithJupyterServer runs code on kernels of a running Jupyter Server.
// An empty kernel name means python3.
func WithJupyterServer(url, token, kernelName string) Option {
	return func(r *Renderer) {
		r.cfg.jupyter = &kernel.JupyterConfig{URL: url, Token: token, KernelName: kernelName}
	}
}

// WithLocalServer starts a Jupyter Server with command on first use and
// stops it on Close. A nil command means "jupyter server".
func WithLocalServer(command ...string) Option {
	return func(r *Renderer) {
		if len(command) == 0 {
			command = []string{"jupyter", "server"}
		}
		r.cfg.launch = command
	}
}

// WithTimeouts sets how long to wait for an interpreter to start and for
// each output message. Zero keeps the default.
func WithTimeouts(startup, poll time.Duration) Option {
	return func(r *Renderer) {
		if startup > 0 {
			r.cfg.startupTimeout = startup
		}
		if poll > 0 {
			r.cfg.pollTimeout = poll
		}
	}
}

// WithClock sets the time source of the date stamp.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.cfg.now = now
		}
	}
}

// WithAssetPath loads the footer template from dir/templates/footer.md,
// falling back to the built-in one.
func WithAssetPath(dir string) Option {
	return func(r *Renderer) {
		r.cfg.assetPath = dir
	}
}

// WithFooterTemplate sets the footer template text. An empty template
// disables the footer.
func WithFooterTemplate(tmpl string) Option {
	return func(r *Renderer) {
		r.cfg.footer = &tmpl
	}
}
