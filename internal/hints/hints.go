// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"os/exec"
	"strings"

	"github.com/alnah/go-mdpost/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// HasJupyter reports whether the jupyter command is on PATH.
var HasJupyter = func() bool {
	_, err := exec.LookPath("jupyter")
	return err == nil
}

// ForKernelStart returns hints for interpreter startup failures.
func ForKernelStart() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != ""

	if os.Getenv("MDPOST_KERNEL_URL") == "" {
		if !HasJupyter() {
			hints = append(hints, "install jupyter_server (pip install jupyter-server ipykernel)")
		}
		if inCI || IsInContainer() {
			hints = append(hints, "set MDPOST_KERNEL_URL and MDPOST_KERNEL_TOKEN to use a running server")
		}
	} else if os.Getenv("MDPOST_KERNEL_TOKEN") == "" {
		hints = append(hints, "set MDPOST_KERNEL_TOKEN if the server requires a token")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about slow cells.
func ForTimeout() string {
	return format("raise kernel.poll_timeout in mdpost.yaml for slow cells")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound() string {
	return format("use --config /path/to/mdpost.yaml or create one at the blog root")
}

// ForH1Heading returns the hint for posts with level-1 headings.
func ForH1Heading() string {
	return format("the title comes from the front matter; start sections at ##")
}

// ForFrontMatter returns hints for missing or invalid front matter.
func ForFrontMatter() string {
	return format("start the post with a --- block holding at least title and description")
}

// ForExpand returns hints for expansion failures.
func ForExpand() string {
	return format("paths in expand() are relative to the post directory")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check path_to_posts and path_to_static exist and are writable")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
