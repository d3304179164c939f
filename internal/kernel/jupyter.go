package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	protocolVersion = "5.3"
	clientUsername  = "mdpost"
	messageBuffer   = 256
	infoRetry       = time.Second
)

// JupyterConfig configures a connection to a Jupyter Server.
type JupyterConfig struct {
	// URL is the server base URL, e.g. http://127.0.0.1:8888.
	URL        string
	Token      string
	KernelName string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *zap.Logger
}

// JupyterBackend runs code in a kernel started through the Jupyter Server
// REST API and talks to it over the multiplexed channels websocket.
type JupyterBackend struct {
	cfg     JupyterConfig
	log     *zap.Logger
	session string

	kernelID string
	conn     *websocket.Conn
	writeMu  sync.Mutex

	msgs      chan Message
	infoReply chan string
	done      chan struct{}
	closed    chan struct{}
	readErr   error

	closeOnce sync.Once
	closeErr  error
}

// NewJupyterBackend returns an unconnected backend; Ready connects it.
func NewJupyterBackend(cfg JupyterConfig) *JupyterBackend {
	if cfg.KernelName == "" {
		cfg.KernelName = "python3"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &JupyterBackend{
		cfg:       cfg,
		log:       cfg.Logger.Named("jupyter"),
		session:   uuid.NewString(),
		msgs:      make(chan Message, messageBuffer),
		infoReply: make(chan string, 8),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

// wireMessage is the JSON form of a kernel message on the websocket.
type wireMessage struct {
	Header       wireHeader      `json:"header"`
	ParentHeader wireHeader      `json:"parent_header"`
	Metadata     map[string]any  `json:"metadata"`
	Content      json.RawMessage `json:"content"`
	Channel      string          `json:"channel"`
	Buffers      []any           `json:"buffers"`
}

type wireHeader struct {
	MsgID    string `json:"msg_id,omitempty"`
	MsgType  string `json:"msg_type,omitempty"`
	Session  string `json:"session,omitempty"`
	Username string `json:"username,omitempty"`
	Date     string `json:"date,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Ready starts a kernel, opens its channels and waits for a
// kernel_info_reply.
func (b *JupyterBackend) Ready(ctx context.Context) error {
	id, err := b.startKernel(ctx)
	if err != nil {
		return err
	}
	b.kernelID = id
	b.log.Debug("kernel started", zap.String("kernel_id", id))

	wsURL, err := b.channelsURL(id)
	if err != nil {
		return err
	}
	conn, resp, err := b.cfg.Dialer.DialContext(ctx, wsURL, b.authHeader())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, wsURL, err)
	}
	b.conn = conn
	go b.readLoop()

	ticker := time.NewTicker(infoRetry)
	defer ticker.Stop()
	for {
		reqID, err := b.send("kernel_info_request", map[string]any{})
		if err != nil {
			return err
		}
	wait:
		for {
			select {
			case parent := <-b.infoReply:
				if parent == reqID {
					return nil
				}
			case <-ticker.C:
				break wait
			case <-b.done:
				return fmt.Errorf("%w: %v", ErrConnection, b.readErr)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (b *JupyterBackend) startKernel(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"name": b.cfg.KernelName})
	if err != nil {
		return "", err
	}
	resp, err := b.do(ctx, http.MethodPost, "/api/kernels", body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: start kernel: %s: %s", ErrConnection, resp.Status, bytes.TrimSpace(msg))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding kernel: %v", ErrConnection, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: server returned no kernel id", ErrConnection)
	}
	return out.ID, nil
}

func (b *JupyterBackend) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	endpoint := strings.TrimRight(b.cfg.URL, "/") + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	for k, v := range b.authHeader() {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrConnection, method, endpoint, err)
	}
	return resp, nil
}

func (b *JupyterBackend) authHeader() http.Header {
	h := http.Header{}
	if b.cfg.Token != "" {
		h.Set("Authorization", "token "+b.cfg.Token)
	}
	return h
}

func (b *JupyterBackend) channelsURL(kernelID string) (string, error) {
	u, err := url.Parse(b.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid server URL: %v", ErrConnection, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/kernels/" + url.PathEscape(kernelID) + "/channels"
	u.RawQuery = url.Values{"session_id": {b.session}}.Encode()
	return u.String(), nil
}

func (b *JupyterBackend) send(msgType string, content any) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	msg := wireMessage{
		Header: wireHeader{
			MsgID:    id,
			MsgType:  msgType,
			Session:  b.session,
			Username: clientUsername,
			Date:     time.Now().UTC().Format(time.RFC3339Nano),
			Version:  protocolVersion,
		},
		Metadata: map[string]any{},
		Content:  raw,
		Channel:  "shell",
		Buffers:  []any{},
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if b.conn == nil {
		return "", fmt.Errorf("%w: not connected", ErrConnection)
	}
	if err := b.conn.WriteJSON(msg); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrConnection, msgType, err)
	}
	return id, nil
}

func (b *JupyterBackend) readLoop() {
	defer close(b.done)
	for {
		var wm wireMessage
		if err := b.conn.ReadJSON(&wm); err != nil {
			b.readErr = err
			return
		}

		switch {
		case wm.Channel == "shell" && wm.Header.MsgType == "kernel_info_reply":
			select {
			case b.infoReply <- wm.ParentHeader.MsgID:
			default:
			}
		case wm.Channel == "iopub":
			var content Content
			if len(wm.Content) > 0 {
				if err := json.Unmarshal(wm.Content, &content); err != nil {
					b.log.Warn("undecodable iopub content", zap.String("msg_type", wm.Header.MsgType), zap.Error(err))
					continue
				}
			}
			msg := Message{
				ID:       wm.Header.MsgID,
				ParentID: wm.ParentHeader.MsgID,
				Type:     wm.Header.MsgType,
				Content:  content,
			}
			select {
			case b.msgs <- msg:
			case <-b.closed:
				return
			}
		}
	}
}

// Submit sends an execute_request.
func (b *JupyterBackend) Submit(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.send("execute_request", map[string]any{
		"code":             code,
		"silent":           false,
		"store_history":    true,
		"user_expressions": map[string]any{},
		"allow_stdin":      false,
		"stop_on_error":    true,
	})
}

// Next waits for the next iopub message.
func (b *JupyterBackend) Next(ctx context.Context, timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-b.msgs:
		return msg, nil
	case <-timer.C:
		return Message{}, ErrPollTimeout
	case <-b.done:
		return Message{}, fmt.Errorf("%w: channel closed: %v", ErrConnection, b.readErr)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Shutdown closes the channels and deletes the kernel. It is safe to call
// more than once.
func (b *JupyterBackend) Shutdown(ctx context.Context) error {
	b.closeOnce.Do(func() {
		close(b.closed)
		if b.conn != nil {
			b.writeMu.Lock()
			deadline := time.Now().Add(time.Second)
			_ = b.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			b.writeMu.Unlock()
			_ = b.conn.Close()
		}
		if b.kernelID == "" {
			return
		}
		resp, err := b.do(ctx, http.MethodDelete, "/api/kernels/"+url.PathEscape(b.kernelID), nil)
		if err != nil {
			b.closeErr = err
			return
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK &&
			resp.StatusCode != http.StatusNotFound {
			b.closeErr = fmt.Errorf("%w: delete kernel: %s", ErrConnection, resp.Status)
		}
	})
	return b.closeErr
}

// KernelID returns the id of the started kernel, empty before Ready.
func (b *JupyterBackend) KernelID() string { return b.kernelID }

var _ Backend = (*JupyterBackend)(nil)

// Ping checks that a Jupyter Server answers GET /api/status. A nil client
// uses http.DefaultClient.
func Ping(ctx context.Context, client *http.Client, baseURL, token string) error {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/api/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrConnection, endpoint, resp.Status)
	}
	return nil
}
