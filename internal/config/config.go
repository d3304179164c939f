// Package config loads the project configuration file, mdpost.yaml, that
// sits at the root of a blog repository.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/alnah/go-mdpost/internal/fileutil"
	"github.com/alnah/go-mdpost/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidConfig  = errors.New("invalid config")
)

// FileNames are searched, in order, in each directory.
var FileNames = []string{"mdpost.yaml", "mdpost.yml", "jupyblog.yaml"}

// MaxLevelsUp bounds the upward search for a config file.
const MaxLevelsUp = 6

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxURLLength      = 2048
	MaxNameLength     = 100
	MaxLanguageLength = 50
	MaxFormatLength   = 64
)

// Config is the project configuration. Relative paths resolve against Root.
type Config struct {
	// Root defaults to the directory holding the config file.
	Root              string            `yaml:"root"`
	PathToPosts       string            `yaml:"path_to_posts"`
	PathToStatic      string            `yaml:"path_to_static"`
	PrefixImg         string            `yaml:"prefix_img"`
	LanguageMapping   map[string]string `yaml:"language_mapping"`
	ImagePlaceholders bool              `yaml:"image_placeholders"`
	Authors           []string          `yaml:"authors"`
	// DateFormat is a token format such as YYYY-MM-DD or a preset name.
	// Empty means an ISO 8601 timestamp.
	DateFormat   string       `yaml:"date_format"`
	SourceURL    string       `yaml:"source_url"`
	IssueURL     string       `yaml:"issue_url"`
	CanonicalURL string       `yaml:"canonical_url"`
	Assets       string       `yaml:"assets"`
	UTM          UTMConfig    `yaml:"utm"`
	Kernel       KernelConfig `yaml:"kernel"`

	// path is the file the config was loaded from.
	path string
}

// UTMConfig holds the link campaign parameters. Tagging is off unless
// source and medium are both set.
type UTMConfig struct {
	Source   string   `yaml:"source"`
	Medium   string   `yaml:"medium"`
	Campaign string   `yaml:"campaign"`
	BaseURLs []string `yaml:"base_urls"`
}

// KernelConfig selects the interpreter backend.
type KernelConfig struct {
	// URL of a running Jupyter Server. When empty a local server is
	// launched with Launch.
	URL    string   `yaml:"url"`
	Token  string   `yaml:"token"`
	Name   string   `yaml:"name"`
	Launch []string `yaml:"launch"`
	// WorkDir is the interpreter working directory, relative to the post.
	WorkDir        string        `yaml:"workdir"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
}

// Validate checks field formats and lengths.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Length(0, MaxPathLength)),
		validation.Field(&c.PathToPosts, validation.Length(0, MaxPathLength)),
		validation.Field(&c.PathToStatic, validation.Length(0, MaxPathLength)),
		validation.Field(&c.PrefixImg, validation.Length(0, MaxPathLength)),
		validation.Field(&c.Authors, validation.Each(validation.Required, validation.Length(1, MaxNameLength))),
		validation.Field(&c.DateFormat, validation.Length(0, MaxFormatLength)),
		validation.Field(&c.SourceURL, validation.Length(0, MaxURLLength), validation.By(httpURL)),
		validation.Field(&c.IssueURL, validation.Length(0, MaxURLLength), validation.By(httpURL)),
		validation.Field(&c.CanonicalURL, validation.Length(0, MaxURLLength), validation.By(httpURL)),
		validation.Field(&c.Assets, validation.Length(0, MaxPathLength)),
		validation.Field(&c.LanguageMapping, validation.By(languageMapping)),
		validation.Field(&c.UTM),
		validation.Field(&c.Kernel),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks the campaign fields.
func (u UTMConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Source, validation.Length(0, MaxNameLength)),
		validation.Field(&u.Medium, validation.Length(0, MaxNameLength), validation.When(u.Source != "", validation.Required)),
		validation.Field(&u.Campaign, validation.Length(0, MaxNameLength)),
	)
}

// Validate checks the backend fields.
func (k KernelConfig) Validate() error {
	return validation.ValidateStruct(&k,
		validation.Field(&k.URL, validation.Length(0, MaxURLLength), validation.By(httpURL)),
		validation.Field(&k.Name, validation.Length(0, MaxNameLength)),
		validation.Field(&k.WorkDir, validation.Length(0, MaxPathLength)),
		validation.Field(&k.StartupTimeout, validation.Min(time.Duration(0))),
		validation.Field(&k.PollTimeout, validation.Min(time.Duration(0))),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

func languageMapping(value any) error {
	m, _ := value.(map[string]string)
	for from, to := range m {
		if from == "" || to == "" || len(from) > MaxLanguageLength || len(to) > MaxLanguageLength {
			return fmt.Errorf("invalid mapping %q: %q", from, to)
		}
		if strings.ContainsAny(from+to, " \t\n`") {
			return fmt.Errorf("language %q or %q contains whitespace or backticks", from, to)
		}
	}
	return nil
}

// Path returns the file the config was loaded from, empty for a config
// built in code.
func (c *Config) Path() string { return c.path }

// PostsDir returns the absolute directory rendered posts are written to.
func (c *Config) PostsDir() string { return c.abs(c.PathToPosts) }

// StaticDir returns the absolute directory images are copied to.
func (c *Config) StaticDir() string { return c.abs(c.PathToStatic) }

// AssetsDir returns the absolute project assets directory, empty when
// embedded assets are used.
func (c *Config) AssetsDir() string {
	if c.Assets == "" {
		return ""
	}
	return c.abs(c.Assets)
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// DefaultConfig returns a configuration rooted at dir that writes posts and
// images next to the sources.
func DefaultConfig(dir string) *Config {
	return &Config{Root: dir, PathToPosts: ".", PathToStatic: "."}
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	switch {
	case cfg.Root == "":
		cfg.Root = dir
	case !filepath.IsAbs(cfg.Root):
		cfg.Root = filepath.Join(dir, cfg.Root)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find searches start and up to MaxLevelsUp parents for a config file
// and loads the first one found.
func Find(start string) (*Config, error) {
	var tried []string
	for _, name := range FileNames {
		path, err := fileutil.FindFileUpwards(start, name, MaxLevelsUp)
		if err == nil {
			return Load(path)
		}
		if !errors.Is(err, fileutil.ErrNotFound) {
			return nil, err
		}
		tried = append(tried, name)
	}
	return nil, fmt.Errorf("%w: no %s in %s or its parents", ErrConfigNotFound, strings.Join(tried, ", "), start)
}
