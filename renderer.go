package mdpost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-mdpost/internal/assets"
	"github.com/alnah/go-mdpost/internal/dateutil"
	"github.com/alnah/go-mdpost/internal/executor"
	"github.com/alnah/go-mdpost/internal/expand"
	"github.com/alnah/go-mdpost/internal/footer"
	"github.com/alnah/go-mdpost/internal/frontmatter"
	"github.com/alnah/go-mdpost/internal/images"
	"github.com/alnah/go-mdpost/internal/kernel"
	"github.com/alnah/go-mdpost/internal/links"
	"github.com/alnah/go-mdpost/internal/mdast"
	"github.com/alnah/go-mdpost/internal/notebook"
	"github.com/alnah/go-mdpost/internal/output"
)

// expandArgs marks expanded fences so they are shown, never run.
const expandArgs = "skip=True"

// Renderer turns post sources into publish-ready Markdown.
// Create with NewRenderer, call Render per post and Close when done.
// A Renderer is safe for concurrent use; every render owns its own
// interpreter session.
type Renderer struct {
	cfg        rendererConfig
	log        *zap.Logger
	footerTmpl string
	launcher   *kernel.Launcher
}

// NewRenderer creates a Renderer. Without a backend option, posts that ask
// for execution fail with ErrNoBackend.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		cfg: rendererConfig{
			startupTimeout: kernel.DefaultStartupTimeout,
			pollTimeout:    kernel.DefaultPollTimeout,
			now:            time.Now,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.cfg.footer != nil {
		r.footerTmpl = *r.cfg.footer
	} else {
		tmpl, err := assets.Load(r.cfg.assetPath, assets.Footer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssets, err)
		}
		r.footerTmpl = tmpl
	}

	if len(r.cfg.launch) > 0 && r.cfg.factory == nil && r.cfg.jupyter == nil {
		r.launcher = &kernel.Launcher{
			Command: r.cfg.launch[0],
			Args:    r.cfg.launch[1:],
			Logger:  r.log,
		}
	}
	return r, nil
}

// Close stops the local interpreter server, if one was started.
func (r *Renderer) Close() error {
	if r.launcher != nil {
		r.launcher.Stop()
	}
	return nil
}

// post is the state of one render.
type post struct {
	in        Input
	dir       string
	canonical string
	hugo      bool
	log       *zap.Logger
	fm        *frontmatter.FrontMatter
}

// Render runs the whole pipeline for one post. Validation and resource
// errors abort the render; exceptions raised by the post's code become
// console output. Internal panics are recovered into an error.
func (r *Renderer) Render(ctx context.Context, in Input) (res *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()

	p, err := r.newPost(in)
	if err != nil {
		return nil, err
	}

	p.log.Debug("rendering", zap.String("stage", "ingest"))
	text, err := ingest(in)
	if err != nil {
		return nil, err
	}

	p.log.Debug("rendering", zap.String("stage", "validate"))
	if p.fm, err = validate(text); err != nil {
		return nil, err
	}

	content := text
	if p.fm.Settings.AllowExpand || in.Expand {
		p.log.Debug("rendering", zap.String("stage", "expand"))
		content, err = expand.Expand(text, expand.Options{
			Root:      p.dir,
			Args:      expandArgs,
			Variables: r.variables(p),
		})
		if err != nil {
			return nil, err
		}
	}

	p.log.Debug("rendering", zap.String("stage", "execute"))
	doc := mdast.Parse(content)
	blocks, fromNotebook, err := r.outputs(ctx, p, doc)
	if err != nil {
		return nil, err
	}
	executing := fromNotebook || (p.fm.Settings.ExecuteCode && !in.SkipExecution)
	if content, err = output.Reinsert(doc, blocks, executing); err != nil {
		return nil, err
	}

	p.log.Debug("rendering", zap.String("stage", "metadata"))
	if err := r.finalizeMetadata(p); err != nil {
		return nil, err
	}

	_, body, err := frontmatter.Split(content)
	if err != nil {
		return nil, err
	}

	p.log.Debug("rendering", zap.String("stage", "publish"))
	if body, err = r.publish(p, body); err != nil {
		return nil, err
	}

	header, err := p.fm.Header()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}

	executed := 0
	for _, b := range blocks {
		if b.Executed {
			executed++
		}
	}
	p.log.Debug("rendered", zap.Int("executed", executed), zap.Bool("from_notebook", fromNotebook))

	return &Result{
		Markdown:      header + body,
		CanonicalName: p.canonical,
		Title:         p.fm.Title,
		Header:        header,
		Executed:      executed,
		FromNotebook:  fromNotebook,
	}, nil
}

func (r *Renderer) newPost(in Input) (*post, error) {
	if in.Path == "" && in.Markdown == "" {
		return nil, ErrEmptyInput
	}
	flavor, err := ParseFlavor(string(in.Flavor))
	if err != nil {
		return nil, err
	}

	dir := ""
	if in.Path != "" {
		abs, err := filepath.Abs(in.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadSource, err)
		}
		in.Path = abs
		dir = filepath.Dir(abs)
	} else if dir, err = os.Getwd(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadSource, err)
	}

	canonical := filepath.Base(dir)
	return &post{
		in:        in,
		dir:       dir,
		canonical: canonical,
		hugo:      flavor == FlavorHugo,
		log:       r.log.With(zap.String("post", canonical)),
	}, nil
}

// ingest reads the source and converts notebooks to Markdown.
func ingest(in Input) (string, error) {
	if in.Markdown != "" {
		return mdast.NormalizeLineEndings(in.Markdown), nil
	}
	text, err := notebook.Load(in.Path)
	if err != nil {
		if errors.Is(err, notebook.ErrUnsupported) || errors.Is(err, notebook.ErrInvalidNotebook) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrReadSource, err)
	}
	return mdast.NormalizeLineEndings(text), nil
}

// validate decodes the front matter, checks its required fields and rejects
// level-1 headings in the body.
func validate(text string) (*frontmatter.FrontMatter, error) {
	fm, err := frontmatter.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := fm.Validate(); err != nil {
		return nil, err
	}
	_, body, err := frontmatter.Split(text)
	if err != nil {
		return nil, err
	}
	if err := checkHeadings(body); err != nil {
		return nil, err
	}
	return fm, nil
}

func checkHeadings(body string) error {
	var h1 []string
	for _, h := range mdast.Parse(body).Headings() {
		if h.Level == 1 {
			h1 = append(h1, "'"+h.Text+"'")
		}
	}
	if len(h1) == 0 {
		return nil
	}
	return fmt.Errorf("%w since they are not compatible with Hugo's table of contents. "+
		"Replace them with H2 headers: [%s]", ErrH1Heading, strings.Join(h1, ", "))
}

func (r *Renderer) sites() footer.Sites {
	return footer.Sites{
		Source:    r.cfg.project.SourceURL,
		Issue:     r.cfg.project.IssueURL,
		Canonical: r.cfg.project.CanonicalURL,
	}
}

// variables are the template values available to expanded posts.
func (r *Renderer) variables(p *post) map[string]string {
	sites := r.sites()
	return map[string]string{
		"url_source":     sites.SourceURL(p.canonical),
		"url_issue":      sites.IssueURL("Issue in " + p.canonical),
		"canonical_name": p.canonical,
	}
}

// outputs returns one block per fence of doc, with outputs from a paired
// notebook when one matches, else from a fresh execution when the post asks
// for it.
func (r *Renderer) outputs(ctx context.Context, p *post, doc *mdast.Document) ([]executor.Block, bool, error) {
	if p.in.Path != "" {
		blocks, ok, err := r.paired(p, doc)
		if err != nil {
			return nil, false, err
		}
		if ok {
			p.log.Debug("using paired notebook outputs")
			return blocks, true, nil
		}
	}

	planned, err := executor.Plan(doc.Blocks())
	if err != nil {
		return nil, false, err
	}
	if !p.fm.Settings.ExecuteCode || p.in.SkipExecution || !anyRunnable(planned) {
		return planned, false, nil
	}

	blocks, err := r.execute(ctx, p, doc)
	return blocks, false, err
}

func anyRunnable(blocks []executor.Block) bool {
	for _, b := range blocks {
		if executor.Runnable(b.Parsed) {
			return true
		}
	}
	return false
}

func (r *Renderer) imageStore(p *post) *kernel.ImageStore {
	if !p.fm.Settings.SerializeImages {
		return nil
	}
	root := p.in.ImageDir
	if root == "" {
		root = filepath.Dir(p.dir)
	}
	return kernel.NewImageStore(root, p.canonical)
}

// paired reads the executed notebook next to the source. A notebook that
// cannot be read or does not match is ignored.
func (r *Renderer) paired(p *post, doc *mdast.Document) ([]executor.Block, bool, error) {
	nbPath := notebook.PairedPath(p.in.Path)
	if nbPath == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(nbPath) // #nosec G304 -- sibling of the post source
	if err != nil {
		p.log.Warn("cannot read paired notebook", zap.String("path", nbPath), zap.Error(err))
		return nil, false, nil
	}

	store := r.imageStore(p)
	if store != nil {
		if err := store.Reset(); err != nil {
			return nil, false, err
		}
	}
	nb, err := notebook.ParseIPYNB(data, store)
	if err != nil {
		if errors.Is(err, kernel.ErrImageSerialize) {
			return nil, false, err
		}
		p.log.Warn("ignoring paired notebook", zap.String("path", nbPath), zap.Error(err))
		return nil, false, nil
	}
	blocks, ok, err := notebook.Match(doc.Blocks(), nb)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		p.log.Debug("paired notebook does not match the post", zap.String("path", nbPath))
	}
	return blocks, ok, nil
}

// execute runs the post's blocks in a new session that is always closed
// before returning.
func (r *Renderer) execute(ctx context.Context, p *post, doc *mdast.Document) (blocks []executor.Block, err error) {
	backend, err := r.newBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKernelStart, err)
	}

	session, err := kernel.New(ctx, backend, kernel.Options{
		StartupTimeout: r.cfg.startupTimeout,
		PollTimeout:    r.cfg.pollTimeout,
		Images:         r.imageStore(p),
		Logger:         p.log,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.log.Warn("closing session", zap.Error(cerr))
		}
	}()

	workDir := p.in.WorkDir
	if workDir != "" && !filepath.IsAbs(workDir) {
		workDir = filepath.Join(p.dir, workDir)
	}
	ex := executor.Executor{WorkDir: workDir, Logger: p.log}
	return ex.Run(ctx, doc.Blocks(), session)
}

func (r *Renderer) newBackend(ctx context.Context) (Backend, error) {
	switch {
	case r.cfg.factory != nil:
		return r.cfg.factory(ctx)
	case r.cfg.jupyter != nil:
		cfg := *r.cfg.jupyter
		cfg.Logger = r.log
		return kernel.NewJupyterBackend(cfg), nil
	case r.launcher != nil:
		startCtx, cancel := context.WithTimeout(ctx, r.cfg.startupTimeout)
		defer cancel()
		cfg, err := r.launcher.Start(startCtx)
		if err != nil {
			return nil, err
		}
		return kernel.NewJupyterBackend(cfg), nil
	}
	return nil, ErrNoBackend
}

// finalizeMetadata stamps the render date, authors and table of contents
// flag, and drops what the flavor does not support.
func (r *Renderer) finalizeMetadata(p *post) error {
	date, err := dateutil.Stamp(r.cfg.project.DateFormat, r.cfg.now())
	if err != nil {
		return err
	}
	p.fm.Set("date", date)
	if authors := r.cfg.project.Authors; len(authors) > 0 {
		p.fm.Set("authors", authors)
	}
	p.fm.Set("toc", true)

	if p.hugo && p.fm.Delete("tags") {
		p.log.Info("removed tags from front matter")
	}
	return nil
}

// publish rewrites the body for the target platform: image links, language
// tags, footer and link campaign.
func (r *Renderer) publish(p *post, body string) (string, error) {
	project := r.cfg.project

	if prefix := path.Join(project.ImagePrefix, p.canonical); prefix != "" && prefix != "." {
		body = images.Prefix(body, prefix, p.hugo)
	}
	if first := images.First(body); first != "" && !p.fm.Has("images") {
		p.fm.Set("images", []string{first})
	}
	if project.ImagePlaceholders {
		body = images.AddPlaceholders(body)
	}

	body = output.ApplyLanguageMap(body, project.LanguageMapping)

	if r.footerTmpl != "" && (project.SourceURL != "" || project.IssueURL != "" || project.CanonicalURL != "") {
		sites := r.sites()
		text, err := footer.Render(r.footerTmpl, footer.Data{
			Title:         p.fm.Title,
			SourceURL:     sites.SourceURL(p.canonical),
			IssueURL:      sites.IssueURL(fmt.Sprintf("Issue in post: %q", p.fm.Title)),
			CanonicalURL:  sites.CanonicalURL(p.canonical),
			IncludeSource: p.in.IncludeSource,
			Hugo:          p.hugo,
		})
		if err != nil {
			return "", err
		}
		body = footer.Append(body, text)
	}

	campaign := links.Campaign{
		Source:   project.Campaign.Source,
		Medium:   project.Campaign.Medium,
		Campaign: project.Campaign.Name,
		BaseURLs: project.Campaign.BaseURLs,
	}
	if campaign.Enabled() {
		tagged, err := links.Tag(body, campaign)
		if err != nil {
			return "", err
		}
		body = tagged
	}
	return body, nil
}
