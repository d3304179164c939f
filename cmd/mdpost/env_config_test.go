package main

// Notes:
// - loadEnvConfig: we test every variable; invalid worker counts are
//   ignored, not errors.
// - applyEnvConfig: kernel variables override the config file.
// - Tests use t.Setenv() which prevents t.Parallel() at parent level.

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alnah/go-mdpost/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("MDPOST_CONFIG", "/blog/mdpost.yaml")
		t.Setenv("MDPOST_KERNEL_URL", "http://127.0.0.1:8888")
		t.Setenv("MDPOST_KERNEL_TOKEN", "secret")
		t.Setenv("MDPOST_KERNEL_NAME", "python3")
		t.Setenv("MDPOST_FLAVOR", "hugo")
		t.Setenv("MDPOST_WORKERS", "3")

		cfg := loadEnvConfig()

		want := envConfig{
			ConfigPath:  "/blog/mdpost.yaml",
			KernelURL:   "http://127.0.0.1:8888",
			KernelToken: "secret",
			KernelName:  "python3",
			Flavor:      "hugo",
			Workers:     3,
		}
		if *cfg != want {
			t.Errorf("loadEnvConfig() = %+v, want %+v", *cfg, want)
		}
	})

	t.Run("invalid workers ignored", func(t *testing.T) {
		for _, v := range []string{"abc", "-2", "0"} {
			t.Setenv("MDPOST_WORKERS", v)
			if got := loadEnvConfig().Workers; got != 0 {
				t.Errorf("MDPOST_WORKERS=%q: Workers = %d, want 0", v, got)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("MDPOST_KERNEL_URLL", "x")
	t.Setenv("MDPOST_KERNEL_URL", "http://localhost:8888")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	if !strings.Contains(buf.String(), "MDPOST_KERNEL_URLL") {
		t.Errorf("typo not reported: %q", buf.String())
	}
	if strings.Contains(buf.String(), "MDPOST_KERNEL_URL ") {
		t.Errorf("known variable reported: %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Environment over config file
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("env wins", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Kernel: config.KernelConfig{URL: "http://file:8888", Token: "file", Name: "ir"}}
		applyEnvConfig(&envConfig{KernelURL: "http://env:8888", KernelToken: "env", KernelName: "python3"}, cfg)

		if cfg.Kernel.URL != "http://env:8888" || cfg.Kernel.Token != "env" || cfg.Kernel.Name != "python3" {
			t.Errorf("Kernel = %+v", cfg.Kernel)
		}
	})

	t.Run("empty env keeps config", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Kernel: config.KernelConfig{URL: "http://file:8888", Token: "file"}}
		applyEnvConfig(&envConfig{}, cfg)

		if cfg.Kernel.URL != "http://file:8888" || cfg.Kernel.Token != "file" {
			t.Errorf("Kernel = %+v", cfg.Kernel)
		}
	})
}
