package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-mdpost/internal/config"
)

// envConfig holds configuration from environment variables, for CI runs
// against a shared Jupyter Server.
type envConfig struct {
	ConfigPath  string // MDPOST_CONFIG: config file path
	KernelURL   string // MDPOST_KERNEL_URL: running Jupyter Server
	KernelToken string // MDPOST_KERNEL_TOKEN: server token
	KernelName  string // MDPOST_KERNEL_NAME: kernel spec name
	Flavor      string // MDPOST_FLAVOR: hugo or markdown
	Workers     int    // MDPOST_WORKERS: parallel renders
}

// knownEnvVars lists valid MDPOST_* environment variables.
var knownEnvVars = map[string]bool{
	"MDPOST_CONFIG":       true,
	"MDPOST_KERNEL_URL":   true,
	"MDPOST_KERNEL_TOKEN": true,
	"MDPOST_KERNEL_NAME":  true,
	"MDPOST_FLAVOR":       true,
	"MDPOST_WORKERS":      true,
	"MDPOST_CONTAINER":    true,
}

// loadEnvConfig reads the recognized MDPOST_* variables. Invalid numbers
// are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:  os.Getenv("MDPOST_CONFIG"),
		KernelURL:   os.Getenv("MDPOST_KERNEL_URL"),
		KernelToken: os.Getenv("MDPOST_KERNEL_TOKEN"),
		KernelName:  os.Getenv("MDPOST_KERNEL_NAME"),
		Flavor:      os.Getenv("MDPOST_FLAVOR"),
	}
	if workers := os.Getenv("MDPOST_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	return cfg
}

// warnUnknownEnvVars reports MDPOST_* variables that are likely typos.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "MDPOST_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig lets the environment select the interpreter server. The
// kernel variables win over the config file so CI can point any project at
// its own server.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.KernelURL != "" {
		cfg.Kernel.URL = env.KernelURL
	}
	if env.KernelToken != "" {
		cfg.Kernel.Token = env.KernelToken
	}
	if env.KernelName != "" {
		cfg.Kernel.Name = env.KernelName
	}
}
