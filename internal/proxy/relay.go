// Package proxy implements a stdio-to-HTTP JSON-RPC relay.
//
// An MCP client spawns the relay as a stdio server. The relay forwards each
// inbound line to the real HTTP MCP endpoint and writes the response back,
// suppressing responses to notifications (messages with no id). Some HTTP
// servers answer notifications with JSON-RPC errors, which a strict client
// would misinterpret as a fatal handshake failure; the relay exists to
// absorb exactly that.
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Relay forwards line-delimited JSON-RPC messages between in/out and one
// downstream HTTP MCP endpoint.
type Relay struct {
	downstream string
	httpClient *http.Client
	in         io.Reader
	out        io.Writer
}

// New creates a Relay forwarding to downstream.
func New(downstream string, in io.Reader, out io.Writer) *Relay {
	return &Relay{
		downstream: downstream,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		in:         in,
		out:        out,
	}
}

// Run reads messages until the input stream closes or ctx is cancelled.
// Malformed input lines are skipped, not fatal.
func (r *Relay) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}

		// Messages without an id are notifications: they must NEVER
		// receive a response, not even when the downstream call fails.
		id, hasID := msg["id"]
		isNotification := !hasID || id == nil

		body, err := r.forward(ctx, []byte(line))
		if err != nil {
			if isNotification {
				continue
			}
			r.writeError(id, err)
			continue
		}

		if isNotification {
			continue
		}

		// Re-compact so the response stays one line on the stdio framing.
		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err != nil {
			r.writeError(id, fmt.Errorf("downstream returned invalid JSON: %w", err))
			continue
		}
		fmt.Fprintf(r.out, "%s\n", compact.Bytes())
	}
	return scanner.Err()
}

func (r *Relay) forward(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.downstream, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downstream HTTP %d", resp.StatusCode)
	}
	return body, nil
}

// writeError emits a JSON-RPC internal-error response for a failed request.
// Only called for messages that carried an id.
func (r *Relay) writeError(id any, cause error) {
	resp := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    -32603,
			"message": cause.Error(),
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	fmt.Fprintf(r.out, "%s\n", data)
}
