package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/hints"
	"github.com/alnah/go-mdpost/internal/kernel"
)

// pingTimeout bounds the status probe of a configured server.
const pingTimeout = 5 * time.Second

// jupyterVersion reports the installed Jupyter version. Replaced in tests.
var jupyterVersion = func() (string, error) {
	out, err := exec.Command("jupyter", "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0]), nil
}

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Kernel   kernelInfo `json:"kernel"`
	Config   configInfo `json:"config"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// kernelInfo holds interpreter detection results.
type kernelInfo struct {
	Mode      string `json:"mode"` // "server" or "local"
	ServerURL string `json:"server_url,omitempty"`
	Reachable bool   `json:"reachable"`
	Jupyter   bool   `json:"jupyter"`
	Version   string `json:"version,omitempty"`
}

// configInfo holds config discovery results.
type configInfo struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	for _, arg := range args {
		switch arg {
		case "--json":
			jsonOutput = true
		case "-h", "--help":
			printDoctorUsage(env.Stdout)
			return ExitSuccess
		}
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	result := runDoctor(ctx, loadEnvConfig())

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, envCfg *envConfig) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	cfg := checkConfig(result)
	if cfg != nil {
		applyEnvConfig(envCfg, cfg)
	} else {
		cfg = &config.Config{Kernel: config.KernelConfig{URL: envCfg.KernelURL, Token: envCfg.KernelToken}}
	}
	checkKernel(ctx, result, cfg.Kernel)
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

// checkConfig looks for a config file from the working directory.
func checkConfig(result *doctorResult) *config.Config {
	wd, err := os.Getwd()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read working directory: %v", err))
		return nil
	}
	cfg, err := config.Find(wd)
	switch {
	case err == nil:
		result.Config = configInfo{Found: true, Path: cfg.Path()}
		return cfg
	case errors.Is(err, config.ErrConfigNotFound):
		result.Warnings = append(result.Warnings, "No mdpost.yaml found; defaults apply")
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid config: %v", err))
	}
	return nil
}

// checkKernel probes the configured server, or looks for a local Jupyter.
func checkKernel(ctx context.Context, result *doctorResult, k config.KernelConfig) {
	if k.URL != "" {
		result.Kernel.Mode = "server"
		result.Kernel.ServerURL = k.URL

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := kernel.Ping(pingCtx, &http.Client{Timeout: pingTimeout}, k.URL, k.Token); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Jupyter Server not reachable: %v", err))
			return
		}
		result.Kernel.Reachable = true
		return
	}

	result.Kernel.Mode = "local"
	if !hints.HasJupyter() {
		result.Errors = append(result.Errors,
			"jupyter not found. Install jupyter-server and ipykernel or set MDPOST_KERNEL_URL")
		return
	}
	result.Kernel.Jupyter = true

	version, err := jupyterVersion()
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Jupyter version: %v", err))
		return
	}
	result.Kernel.Version = version
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Kernel.Mode == "local" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected and no server configured. Consider MDPOST_KERNEL_URL")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("MDPOST_CONTAINER") == "1" {
		return true, "MDPOST_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for atomic writes.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "mdpost-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	_ = os.Remove(testFile)
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "mdpost doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Interpreter")
	switch {
	case r.Kernel.Mode == "server" && r.Kernel.Reachable:
		fmt.Fprintf(w, "  [OK] Jupyter Server at %s\n", r.Kernel.ServerURL)
	case r.Kernel.Mode == "server":
		fmt.Fprintf(w, "  [ERROR] Jupyter Server at %s not reachable\n", r.Kernel.ServerURL)
	case r.Kernel.Jupyter:
		fmt.Fprintln(w, "  [OK] jupyter found, a local server is launched per run")
		if r.Kernel.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Kernel.Version)
		}
	default:
		fmt.Fprintln(w, "  [ERROR] jupyter not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config")
	if r.Config.Found {
		fmt.Fprintf(w, "  [OK] %s\n", r.Config.Path)
	} else {
		fmt.Fprintln(w, "  [OK] none (defaults)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to render")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
