package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// httpTransport POSTs each JSON-RPC envelope to a fixed endpoint.
type httpTransport struct {
	name       string
	url        string
	headers    map[string]string
	httpClient *http.Client
	nextID     int64
}

func newHTTPTransport(name string, cfg ServerConfig) *httpTransport {
	return &httpTransport{
		name:    name,
		url:     cfg.URL,
		headers: cfg.Headers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Connect is a no-op: each call is an independent HTTP exchange.
func (t *httpTransport) Connect(context.Context) error { return nil }

func (t *httpTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&t.nextID, 1)
	body, err := t.post(ctx, Request{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Backend: t.name, Reason: fmt.Sprintf("response is not JSON-RPC: %v", err)}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

func (t *httpTransport) Notify(ctx context.Context, method string, params any) error {
	// No id makes this a notification; any body the server sends back is
	// discarded unread.
	_, err := t.post(ctx, Request{JSONRPC: "2.0", Method: method, Params: params})
	return err
}

func (t *httpTransport) post(ctx context.Context, req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Backend: t.name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Backend: t.name, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Backend: t.name, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return body, nil
}

func (t *httpTransport) Close() error { return nil }
