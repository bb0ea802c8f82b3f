package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// runRelay feeds input through a Relay pointed at url and returns the output
// lines.
func runRelay(t *testing.T, url, input string) []string {
	t.Helper()
	var out bytes.Buffer
	relay := New(url, strings.NewReader(input), &out)
	if err := relay.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// echoServer answers requests with a result and notifications with 204.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg map[string]any
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if id, ok := msg["id"]; !ok || id == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      msg["id"],
			"result":  map[string]any{"ok": true},
		}); err != nil {
			t.Errorf("encode: %v", err)
		}
	}))
}

func TestRelay_ForwardsRequests(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	lines := runRelay(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 response line, got %d", len(lines))
	}

	var resp map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["id"] != float64(1) {
		t.Errorf("id mismatch: %v", resp["id"])
	}
	if resp["error"] != nil {
		t.Errorf("unexpected error: %v", resp["error"])
	}
}

func TestRelay_NotificationsProduceNoOutput(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":null,"method":"notifications/progress"}` + "\n"
	lines := runRelay(t, srv.URL, input)
	if len(lines) != 0 {
		t.Errorf("notifications must never be answered, got %d lines: %v", len(lines), lines)
	}
}

func TestRelay_NotificationFailureStaysSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":7,"method":"tools/list"}` + "\n"
	lines := runRelay(t, srv.URL, input)
	// Only the id'd request gets an error; the failed notification stays
	// silent.
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(lines), lines)
	}

	var resp map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["id"] != float64(7) {
		t.Errorf("id mismatch: %v", resp["id"])
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp["error"])
	}
	if errObj["code"] != float64(-32603) {
		t.Errorf("expected code -32603, got %v", errObj["code"])
	}
}

func TestRelay_SkipsMalformedLines(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	input := "this is not json\n" +
		"\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	lines := runRelay(t, srv.URL, input)
	if len(lines) != 1 {
		t.Fatalf("expected malformed lines to be skipped, got %d lines", len(lines))
	}
}

func TestRelay_CompactsMultiLineResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Pretty-printed body spans multiple lines.
		w.Write([]byte("{\n  \"jsonrpc\": \"2.0\",\n  \"id\": 3,\n  \"result\": {}\n}\n"))
	}))
	defer srv.Close()

	lines := runRelay(t, srv.URL, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`+"\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single-line response, got %d lines: %v", len(lines), lines)
	}
}
