package main

// Notes:
// - checkKernel: server mode is tested against an httptest server; local
//   mode swaps hints.HasJupyter and jupyterVersion, so those tests cannot
//   run in parallel.
// - runDoctor reads the real environment for CI and container detection;
//   assertions avoid depending on it.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alnah/go-mdpost/internal/config"
	"github.com/alnah/go-mdpost/internal/hints"
)

func statusServer(t *testing.T, token string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" || r.Header.Get("Authorization") != "token "+token {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"started":"2024-03-15T10:30:00Z"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func stubJupyter(t *testing.T, installed bool, version string, versionErr error) {
	t.Helper()

	origHas, origVersion := hints.HasJupyter, jupyterVersion
	t.Cleanup(func() { hints.HasJupyter, jupyterVersion = origHas, origVersion })
	hints.HasJupyter = func() bool { return installed }
	jupyterVersion = func() (string, error) { return version, versionErr }
}

// ---------------------------------------------------------------------------
// TestCheckKernel - Server and local modes
// ---------------------------------------------------------------------------

func TestCheckKernel_Server(t *testing.T) {
	t.Parallel()

	srv := statusServer(t, "secret")

	tests := []struct {
		name          string
		token         string
		wantReachable bool
	}{
		{"valid token", "secret", true},
		{"wrong token", "nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := &doctorResult{}
			checkKernel(context.Background(), result, config.KernelConfig{URL: srv.URL, Token: tt.token})

			if result.Kernel.Mode != "server" || result.Kernel.ServerURL != srv.URL {
				t.Errorf("Kernel = %+v", result.Kernel)
			}
			if result.Kernel.Reachable != tt.wantReachable {
				t.Errorf("Reachable = %v, want %v", result.Kernel.Reachable, tt.wantReachable)
			}
			if got := len(result.Errors) > 0; got == tt.wantReachable {
				t.Errorf("Errors = %v", result.Errors)
			}
		})
	}
}

func TestCheckKernel_Local(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		stubJupyter(t, true, "jupyter_server: 2.14.0", nil)

		result := &doctorResult{}
		checkKernel(context.Background(), result, config.KernelConfig{})

		if result.Kernel.Mode != "local" || !result.Kernel.Jupyter || result.Kernel.Version != "jupyter_server: 2.14.0" {
			t.Errorf("Kernel = %+v", result.Kernel)
		}
		if len(result.Errors)+len(result.Warnings) != 0 {
			t.Errorf("unexpected findings: %v %v", result.Errors, result.Warnings)
		}
	})

	t.Run("version unknown", func(t *testing.T) {
		stubJupyter(t, true, "", errors.New("exit status 1"))

		result := &doctorResult{}
		checkKernel(context.Background(), result, config.KernelConfig{})

		if len(result.Warnings) != 1 || len(result.Errors) != 0 {
			t.Errorf("Warnings = %v, Errors = %v", result.Warnings, result.Errors)
		}
	})

	t.Run("missing", func(t *testing.T) {
		stubJupyter(t, false, "", nil)

		result := &doctorResult{}
		checkKernel(context.Background(), result, config.KernelConfig{})

		if result.Kernel.Jupyter || len(result.Errors) != 1 {
			t.Errorf("Kernel = %+v, Errors = %v", result.Kernel, result.Errors)
		}
	})
}

// ---------------------------------------------------------------------------
// TestIsContainer - Container detection
// ---------------------------------------------------------------------------

func TestIsContainer(t *testing.T) {
	orig := hints.IsInContainer
	t.Cleanup(func() { hints.IsInContainer = orig })
	hints.IsInContainer = func() bool { return false }
	t.Setenv("container", "")
	t.Setenv("KUBERNETES_SERVICE_HOST", "")

	t.Setenv("MDPOST_CONTAINER", "1")
	if ok, hint := isContainer(); !ok || hint != "MDPOST_CONTAINER=1" {
		t.Errorf("isContainer() = %v, %q", ok, hint)
	}

	t.Setenv("MDPOST_CONTAINER", "")
	if ok, _ := isContainer(); ok {
		t.Error("isContainer() = true without any signal")
	}

	t.Setenv("container", "podman")
	if ok, hint := isContainer(); !ok || hint != "container=podman" {
		t.Errorf("isContainer() = %v, %q", ok, hint)
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctor - Full report
// ---------------------------------------------------------------------------

func TestRunDoctor_Server(t *testing.T) {
	srv := statusServer(t, "secret")

	result := runDoctor(context.Background(), &envConfig{KernelURL: srv.URL, KernelToken: "secret"})
	if !result.Kernel.Reachable {
		t.Errorf("Kernel = %+v, Errors = %v", result.Kernel, result.Errors)
	}
	if result.Status == "errors" {
		t.Errorf("Status = errors: %v", result.Errors)
	}
	if !result.System.TempWritable {
		t.Error("TempWritable = false")
	}

	var buf bytes.Buffer
	printDoctorResult(&buf, result)
	for _, want := range []string{"mdpost doctor", "[OK] Jupyter Server at " + srv.URL, "Status: Ready"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestRunDoctorCmd_JSON(t *testing.T) {
	srv := statusServer(t, "secret")
	t.Setenv("MDPOST_KERNEL_URL", srv.URL)
	t.Setenv("MDPOST_KERNEL_TOKEN", "wrong")

	env, stdout, _ := testEnv()
	if code := runDoctorCmd([]string{"--json"}, env); code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}

	var got doctorResult
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if got.Status != "errors" || got.Kernel.Mode != "server" || got.Kernel.Reachable {
		t.Errorf("result = %+v", got)
	}
}
