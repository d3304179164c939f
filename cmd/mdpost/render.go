package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	mdpost "github.com/alnah/go-mdpost"
	"github.com/alnah/go-mdpost/internal/assets"
	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/fileutil"
	"github.com/alnah/go-mdpost/internal/preview"
)

// filePermissions is rw-r--r--: rendered posts are meant to be published.
const filePermissions = 0o644

// Sentinel errors for writing results.
var (
	ErrWritePost  = errors.New("failed to write rendered post")
	ErrCopyImages = errors.New("failed to copy post images")
)

// renderOutcome holds what happened to one post.
type renderOutcome struct {
	Source   string
	Output   string
	Preview  string
	Images   int
	Executed int
	Err      error
	Duration time.Duration
}

// batchError reports failed posts. It unwraps to the first failure so the
// exit code reflects its kind.
type batchError struct {
	failed int
	total  int
	first  error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d posts failed", e.failed, e.total)
}

func (e *batchError) Unwrap() error { return e.first }

// runRender renders every discovered post and writes the results.
func runRender(ctx context.Context, args []string, flags *renderFlags, env *Environment) error {
	envCfg := loadEnvConfig()
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr)
	}

	workers := flags.workers
	if workers == 0 {
		workers = envCfg.Workers
	}
	if err := validateWorkers(workers); err != nil {
		return err
	}

	flavorName := flags.flavor
	if flavorName == "" {
		flavorName = envCfg.Flavor
	}
	flavor, err := mdpost.ParseFlavor(flavorName)
	if err != nil {
		return err
	}

	sources, err := discoverPosts(args)
	if err != nil {
		return fmt.Errorf("discovering posts: %w", err)
	}

	log := newLogger(flags.common, env.Stderr)
	defer func() { _ = log.Sync() }()

	cfgPath := flags.common.config
	if cfgPath == "" {
		cfgPath = envCfg.ConfigPath
	}
	cfg, err := loadConfig(cfgPath, filepath.Dir(sources[0]), log)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)

	postsDir, staticDir := cfg.PostsDir(), cfg.StaticDir()
	if flags.output != "" {
		if postsDir, err = filepath.Abs(flags.output); err != nil {
			return err
		}
	}
	if flags.static != "" {
		if staticDir, err = filepath.Abs(flags.static); err != nil {
			return err
		}
	}

	var pv *preview.Renderer
	if flags.preview {
		style, err := loadPreviewStyle(cfg)
		if err != nil {
			return err
		}
		pv = preview.New(style)
	}

	r, err := newRenderer(cfg, env, log)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	inputs := make([]mdpost.Input, len(sources))
	for i, src := range sources {
		inputs[i] = mdpost.Input{
			Path:          src,
			Flavor:        flavor,
			IncludeSource: flags.incSource,
			SkipExecution: flags.noExecute,
			Expand:        flags.expand,
			WorkDir:       cfg.Kernel.WorkDir,
		}
	}

	log.Debug("rendering posts", zap.Int("posts", len(inputs)), zap.Int("workers", mdpost.ResolvePoolSize(workers)))
	results := r.RenderAll(ctx, inputs, workers)

	outcomes := make([]renderOutcome, len(results))
	for i, br := range results {
		outcomes[i] = publishResult(ctx, br, postsDir, staticDir, pv)
	}

	if failed := printOutcomes(outcomes, flags.common, env); failed > 0 {
		return &batchError{failed: failed, total: len(outcomes), first: firstError(outcomes)}
	}
	return nil
}

// loadConfig loads the config at path, or searches upwards from start.
// Without a config file the defaults apply, rooted at the working directory.
func loadConfig(path, start string, log *zap.Logger) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Find(start)
	if err == nil {
		log.Debug("using config", zap.String("path", cfg.Path()))
		return cfg, nil
	}
	if !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	log.Debug("no config file found, using defaults", zap.String("root", wd))
	return config.DefaultConfig(wd), nil
}

// projectFromConfig maps the config file onto the renderer settings.
func projectFromConfig(cfg *config.Config) mdpost.Project {
	return mdpost.Project{
		LanguageMapping:   cfg.LanguageMapping,
		ImagePrefix:       cfg.PrefixImg,
		ImagePlaceholders: cfg.ImagePlaceholders,
		Authors:           cfg.Authors,
		DateFormat:        cfg.DateFormat,
		SourceURL:         cfg.SourceURL,
		IssueURL:          cfg.IssueURL,
		CanonicalURL:      cfg.CanonicalURL,
		Campaign: mdpost.Campaign{
			Source:   cfg.UTM.Source,
			Medium:   cfg.UTM.Medium,
			Name:     cfg.UTM.Campaign,
			BaseURLs: cfg.UTM.BaseURLs,
		},
	}
}

// newRenderer picks the interpreter backend: the injected one, a running
// server, or a server launched on first use.
func newRenderer(cfg *config.Config, env *Environment, log *zap.Logger) (*mdpost.Renderer, error) {
	opts := []mdpost.Option{
		mdpost.WithLogger(log),
		mdpost.WithProject(projectFromConfig(cfg)),
		mdpost.WithClock(env.Now),
		mdpost.WithTimeouts(cfg.Kernel.StartupTimeout, cfg.Kernel.PollTimeout),
		mdpost.WithAssetPath(cfg.AssetsDir()),
	}
	switch {
	case env.Backend != nil:
		opts = append(opts, mdpost.WithBackendFactory(env.Backend))
	case cfg.Kernel.URL != "":
		opts = append(opts, mdpost.WithJupyterServer(cfg.Kernel.URL, cfg.Kernel.Token, cfg.Kernel.Name))
	default:
		opts = append(opts, mdpost.WithLocalServer(cfg.Kernel.Launch...))
	}
	return mdpost.NewRenderer(opts...)
}

func loadPreviewStyle(cfg *config.Config) (string, error) {
	style, err := assets.Load(cfg.AssetsDir(), assets.Style)
	if err != nil {
		return "", fmt.Errorf("%w: %v", mdpost.ErrInvalidAssets, err)
	}
	return style, nil
}

// publishResult writes a rendered post, its images and its preview.
func publishResult(ctx context.Context, br mdpost.BatchResult, postsDir, staticDir string, pv *preview.Renderer) renderOutcome {
	start := time.Now()
	out := renderOutcome{Source: br.Input.Path, Err: br.Err, Duration: br.Duration}
	if br.Err != nil {
		return out
	}
	res := br.Result
	out.Executed = res.Executed

	out.Output = outputPath(postsDir, res.CanonicalName)
	if err := fileutil.WriteFileAtomic(out.Output, []byte(res.Markdown), filePermissions); err != nil {
		out.Err = fmt.Errorf("%w: %v", ErrWritePost, err)
		return out
	}

	n, err := copyImages(filepath.Dir(br.Input.Path), staticDir, res.CanonicalName)
	out.Images = n
	if err != nil {
		out.Err = err
		return out
	}

	if pv != nil {
		page, err := pv.Render(ctx, res.Title, strings.TrimPrefix(res.Markdown, res.Header))
		if err != nil {
			out.Err = err
			return out
		}
		out.Preview = previewPath(out.Output)
		if err := fileutil.WriteFileAtomic(out.Preview, []byte(page), filePermissions); err != nil {
			out.Err = fmt.Errorf("%w: %v", ErrWritePost, err)
			return out
		}
	}

	out.Duration += time.Since(start)
	return out
}

// copyImages copies the PNGs of a post directory to staticDir/canonical.
// Nothing is copied when that target lies inside the post directory.
func copyImages(postDir, staticDir, canonical string) (int, error) {
	target := filepath.Join(staticDir, canonical)
	if rel, err := filepath.Rel(postDir, target); err == nil && !strings.HasPrefix(rel, "..") {
		return 0, nil
	}
	copied, err := fileutil.CopyPNGs(postDir, staticDir, canonical)
	if err != nil {
		return len(copied), fmt.Errorf("%w: %v", ErrCopyImages, err)
	}
	return len(copied), nil
}

func firstError(outcomes []renderOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// printOutcomes reports each post and returns the number of failures.
func printOutcomes(outcomes []renderOutcome, common commonFlags, env *Environment) int {
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", o.Source, o.Err, hintFor(o.Err))
			continue
		}
		if common.quiet {
			continue
		}
		if common.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d blocks, %d images, %v)\n",
				o.Source, o.Output, o.Executed, o.Images, o.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Rendered %s\n", o.Output)
		}
		if o.Preview != "" {
			fmt.Fprintf(env.Stdout, "Preview %s\n", o.Preview)
		}
	}

	if !common.quiet && len(outcomes) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(outcomes)-failed, failed)
	}
	return failed
}
