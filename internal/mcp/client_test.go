package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer returns an MCP HTTP server that answers tools/list with the
// given tools and tools/call with handle.
func newTestServer(t *testing.T, tools []ToolInfo, handle func(name string, args map[string]any) (any, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string         `json:"jsonrpc"`
			ID      any            `json:"id"`
			Method  string         `json:"method"`
			Params  map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		reply := func(result any, rpcErr *RPCError) {
			resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
			if rpcErr != nil {
				resp["error"] = map[string]any{"code": rpcErr.Code, "message": rpcErr.Message}
			} else {
				resp["result"] = result
			}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				t.Errorf("encode response: %v", err)
			}
		}

		switch req.Method {
		case "tools/list":
			reply(map[string]any{"tools": tools}, nil)
		case "tools/call":
			name, _ := req.Params["name"].(string)
			args, _ := req.Params["arguments"].(map[string]any)
			result, rpcErr := handle(name, args)
			reply(result, rpcErr)
		default:
			reply(nil, &RPCError{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method})
		}
	}))
}

func newHTTPClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient("test", ServerConfig{URL: url})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func textResult(blocks ...ContentBlock) map[string]any {
	return map[string]any{"content": blocks}
}

func TestClient_ListTools(t *testing.T) {
	tools := []ToolInfo{
		{Name: "send_email", Description: "Send an email"},
		{Name: "fetch_page", Description: "Fetch a page"},
	}
	srv := newTestServer(t, tools, nil)
	defer srv.Close()

	client := newHTTPClient(t, srv.URL)
	defer client.Close()

	got, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(got))
	}
	if got[0].Name != "send_email" || got[1].Name != "fetch_page" {
		t.Errorf("tool order not preserved: %q, %q", got[0].Name, got[1].Name)
	}
}

func TestClient_CallTool_FirstTextBlock(t *testing.T) {
	srv := newTestServer(t, nil, func(name string, args map[string]any) (any, *RPCError) {
		return textResult(
			ContentBlock{Type: "image", Text: ""},
			ContentBlock{Type: "text", Text: "first"},
			ContentBlock{Type: "text", Text: "second"},
		), nil
	})
	defer srv.Close()

	client := newHTTPClient(t, srv.URL)
	defer client.Close()

	got, err := client.CallTool(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got != "first" {
		t.Errorf("expected first text block, got %q", got)
	}
}

func TestClient_CallTool_NoTextContent(t *testing.T) {
	cases := map[string]map[string]any{
		"empty content": textResult(),
		"non-text only": textResult(ContentBlock{Type: "image"}),
		"no content":    {},
	}
	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, nil, func(string, map[string]any) (any, *RPCError) {
				return result, nil
			})
			defer srv.Close()

			client := newHTTPClient(t, srv.URL)
			defer client.Close()

			got, err := client.CallTool(context.Background(), "x", nil)
			if err != nil {
				t.Fatalf("CallTool: %v", err)
			}
			if got != "" {
				t.Errorf("expected empty result, got %q", got)
			}
		})
	}
}

func TestClient_CallTool_ErrorObject(t *testing.T) {
	srv := newTestServer(t, nil, func(name string, args map[string]any) (any, *RPCError) {
		return nil, &RPCError{Code: CodeToolFailure, Message: "Email send failed: boom"}
	})
	defer srv.Close()

	client := newHTTPClient(t, srv.URL)
	defer client.Close()

	_, err := client.CallTool(context.Background(), "send_email", map[string]any{})
	var callErr *ToolCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *ToolCallError, got %T (%v)", err, err)
	}
	if callErr.Code != CodeToolFailure {
		t.Errorf("expected code %d, got %d", CodeToolFailure, callErr.Code)
	}
	if callErr.Tool != "send_email" {
		t.Errorf("expected tool name in error, got %q", callErr.Tool)
	}
}

func TestClient_TransportError_OnHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newHTTPClient(t, srv.URL)
	defer client.Close()

	_, err := client.ListTools(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %T (%v)", err, err)
	}
}

func TestClient_ProtocolError_OnMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer srv.Close()

	client := newHTTPClient(t, srv.URL)
	defer client.Close()

	_, err := client.ListTools(context.Background())
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %T (%v)", err, err)
	}
}

type echoHandler struct {
	name string
	fail error
}

func (h echoHandler) Info() ToolInfo {
	return ToolInfo{Name: h.name, Description: "echoes its argument"}
}

func (h echoHandler) Handle(_ context.Context, args map[string]any) (string, error) {
	if h.fail != nil {
		return "", h.fail
	}
	text, _ := args["text"].(string)
	return text, nil
}

func TestClient_Inproc_RoundTrip(t *testing.T) {
	client, err := NewClient("builtin", ServerConfig{
		Handlers: []Handler{echoHandler{name: "echo"}},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("unexpected tools: %+v", tools)
	}

	got, err := client.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestClient_Inproc_UnknownTool(t *testing.T) {
	client, err := NewClient("builtin", ServerConfig{
		Handlers: []Handler{echoHandler{name: "echo"}},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	_, err = client.CallTool(context.Background(), "missing", nil)
	var callErr *ToolCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *ToolCallError, got %T (%v)", err, err)
	}
	if callErr.Code != CodeMethodNotFound {
		t.Errorf("expected code %d, got %d", CodeMethodNotFound, callErr.Code)
	}
}

func TestClient_Inproc_HandlerFailure(t *testing.T) {
	client, err := NewClient("builtin", ServerConfig{
		Handlers: []Handler{echoHandler{name: "echo", fail: errors.New("disk full")}},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	_, err = client.CallTool(context.Background(), "echo", nil)
	var callErr *ToolCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *ToolCallError, got %T (%v)", err, err)
	}
	if callErr.Code != CodeToolFailure {
		t.Errorf("expected code %d, got %d", CodeToolFailure, callErr.Code)
	}
	if callErr.Message != "disk full" {
		t.Errorf("expected handler error message, got %q", callErr.Message)
	}
}
