package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/cerebricks/mailagent/internal/agent"
	"github.com/cerebricks/mailagent/internal/schema"
)

// fakeRunner returns a canned result and records requests.
type fakeRunner struct {
	result schema.SessionResult
	err    error
	reqs   []agent.Request
}

func (f *fakeRunner) Run(_ context.Context, req agent.Request) (schema.SessionResult, error) {
	f.reqs = append(f.reqs, req)
	if req.OnProgress != nil {
		req.OnProgress("🔧 send_email")
	}
	return f.result, f.err
}

func postQuery(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/query", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	srv := New(&fakeRunner{}, 0)
	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected ok, got %q", resp["status"])
	}
}

func TestQuery_Success(t *testing.T) {
	runner := &fakeRunner{result: schema.SessionResult{
		Response:  "Email sent.",
		ToolsUsed: []string{"send_email"},
		Turns:     2,
		CostUSD:   0.0123,
		Status:    schema.StatusCompleted,
	}}
	srv := New(runner, 0)

	rec := postQuery(t, srv, `{"prompt":"send the report","max_turns":4}`)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Prompt != "send the report" {
		t.Errorf("prompt not echoed: %q", resp.Prompt)
	}
	if resp.Response != "Email sent." || resp.Turns != 2 {
		t.Errorf("result fields wrong: %+v", resp)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "send_email" {
		t.Errorf("tools_used wrong: %v", resp.ToolsUsed)
	}
	if resp.ElapsedSeconds < 0 {
		t.Errorf("elapsed must be non-negative, got %v", resp.ElapsedSeconds)
	}

	if len(runner.reqs) != 1 || runner.reqs[0].MaxTurns != 4 {
		t.Errorf("max_turns not forwarded: %+v", runner.reqs)
	}
}

func TestQuery_MaxTurnsReachedIsNotSuccess(t *testing.T) {
	runner := &fakeRunner{result: schema.SessionResult{
		Response: "Task incomplete - max turns reached",
		Turns:    10,
		Status:   schema.StatusMaxTurns,
	}}
	srv := New(runner, 0)

	rec := postQuery(t, srv, `{"prompt":"huge task"}`)
	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("a truncated run must not report success")
	}
}

func TestQuery_RunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("provider down")}
	srv := New(runner, 0)

	rec := postQuery(t, srv, `{"prompt":"x"}`)
	if rec.Code != 500 {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("failed run must not report success")
	}
	if resp.Error != "provider down" {
		t.Errorf("error not surfaced: %q", resp.Error)
	}
}

func TestQuery_MissingPrompt(t *testing.T) {
	srv := New(&fakeRunner{}, 0)
	rec := postQuery(t, srv, `{}`)
	if rec.Code != 400 {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestQuery_RejectsGet(t *testing.T) {
	srv := New(&fakeRunner{}, 0)
	req := httptest.NewRequest("GET", "/query", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != 405 {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
