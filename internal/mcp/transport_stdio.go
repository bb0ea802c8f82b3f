package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// stdioTransport launches a child process that reads line-delimited JSON-RPC
// requests on stdin and writes line-delimited responses to stdout.
type stdioTransport struct {
	name string
	cfg  ServerConfig

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
	nextID  int64
}

func newStdioTransport(name string, cfg ServerConfig) *stdioTransport {
	return &stdioTransport{name: name, cfg: cfg}
}

// start launches the subprocess on first use. Callers hold t.mu.
// The process lives for the lifetime of the transport, not of any one
// call: per-call contexts are cancelled as soon as the call returns, so
// the command is deliberately not bound to one. Close kills it.
func (t *stdioTransport) start() error {
	if t.started {
		return nil
	}

	cmd := exec.Command(t.cfg.Command, t.cfg.Args...)
	if len(t.cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range t.cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return &TransportError{Backend: t.name, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &TransportError{Backend: t.name, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return &TransportError{Backend: t.name, Err: fmt.Errorf("start subprocess: %w", err)}
	}

	t.cmd = cmd
	t.stdin = stdinPipe
	t.stdout = bufio.NewReader(stdoutPipe)
	t.started = true
	return nil
}

// Connect starts the subprocess and runs the initialize handshake followed
// by the initialized notification.
func (t *stdioTransport) Connect(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "mailagent", "version": "1.0"},
	}
	if _, err := t.Call(ctx, "initialize", params); err != nil {
		t.Close() //nolint:errcheck
		return fmt.Errorf("initialize: %w", err)
	}
	return t.Notify(ctx, "notifications/initialized", nil)
}

func (t *stdioTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&t.nextID, 1)
	req := Request{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.start(); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(t.stdin, "%s\n", data); err != nil {
		return nil, &TransportError{Backend: t.name, Err: fmt.Errorf("write to subprocess stdin: %w", err)}
	}

	// Read response lines until one carries our id. Non-JSON lines are
	// server log output and are skipped.
	for {
		select {
		case <-ctx.Done():
			return nil, &TransportError{Backend: t.name, Err: ctx.Err()}
		default:
		}

		line, err := t.stdout.ReadString('\n')
		if err != nil {
			return nil, &TransportError{Backend: t.name, Err: fmt.Errorf("read subprocess stdout: %w", err)}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue
		}

		var respID int64
		if err := json.Unmarshal(resp.ID, &respID); err != nil || respID != id {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

func (t *stdioTransport) Notify(ctx context.Context, method string, params any) error {
	req := Request{JSONRPC: "2.0", Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.start(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(t.stdin, "%s\n", data); err != nil {
		return &TransportError{Backend: t.name, Err: fmt.Errorf("write to subprocess stdin: %w", err)}
	}
	return nil
}

func (t *stdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return nil
	}
	t.started = false
	if t.stdin != nil {
		t.stdin.Close() //nolint:errcheck
	}
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Kill() //nolint:errcheck
		t.cmd.Wait()         //nolint:errcheck
	}
	return nil
}
