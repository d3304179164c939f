package kernel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-mdpost/internal/process"
)

// ErrLauncher indicates the local interpreter server could not be started.
var ErrLauncher = errors.New("failed to launch interpreter server")

const statusPoll = 200 * time.Millisecond

// Launcher starts a local Jupyter Server in its own process group and tears
// the whole group down on Stop.
type Launcher struct {
	// Command is the executable, "jupyter" when empty.
	Command string
	// Args precede the generated server flags, ["server"] when nil.
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env    []string
	Logger *zap.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	url     string
	token   string
	exited  chan struct{}
	waitErr error
}

// Start launches the server on a free local port and waits until its status
// endpoint answers or ctx expires.
func (l *Launcher) Start(ctx context.Context) (JupyterConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if l.cmd != nil {
		return JupyterConfig{URL: l.url, Token: l.token, Logger: log}, nil
	}

	port, err := freePort()
	if err != nil {
		return JupyterConfig{}, fmt.Errorf("%w: %v", ErrLauncher, err)
	}
	name := l.Command
	if name == "" {
		name = "jupyter"
	}
	args := l.Args
	if args == nil {
		args = []string{"server"}
	}
	token := uuid.NewString()
	args = append(append([]string(nil), args...),
		"--no-browser",
		"--ip=127.0.0.1",
		"--port="+strconv.Itoa(port),
		"--ServerApp.token="+token,
	)

	cmd := exec.Command(name, args...) // #nosec G204 -- command comes from local configuration
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	process.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return JupyterConfig{}, fmt.Errorf("%w: %v", ErrLauncher, err)
	}
	exited := make(chan struct{})
	go func() {
		l.waitErr = cmd.Wait()
		close(exited)
	}()

	l.cmd, l.exited, l.token = cmd, exited, token
	l.url = "http://127.0.0.1:" + strconv.Itoa(port)
	log.Debug("interpreter server starting", zap.String("url", l.url), zap.Int("pid", cmd.Process.Pid))

	if err := waitStatus(ctx, l.url, token, exited); err != nil {
		l.stopLocked()
		if l.waitErr != nil {
			err = fmt.Errorf("%v: %v", err, l.waitErr)
		}
		return JupyterConfig{}, fmt.Errorf("%w: %v", ErrLauncher, err)
	}
	return JupyterConfig{URL: l.url, Token: token, Logger: log}, nil
}

// Stop kills the server process group. Calling Stop on a launcher that was
// never started is a no-op.
func (l *Launcher) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Launcher) stopLocked() {
	if l.cmd == nil || l.cmd.Process == nil {
		return
	}
	process.KillProcessGroup(l.cmd.Process.Pid)
	_ = l.cmd.Process.Kill()
	select {
	case <-l.exited:
	case <-time.After(5 * time.Second):
	}
	l.cmd = nil
}

func waitStatus(ctx context.Context, baseURL, token string, exited <-chan struct{}) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(statusPoll)
	defer ticker.Stop()

	for {
		if err := Ping(ctx, client, baseURL, token); err == nil {
			return nil
		}

		select {
		case <-exited:
			return errors.New("server exited before becoming ready")
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
