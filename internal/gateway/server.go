// Package gateway exposes the agent over HTTP: a JSON query endpoint for
// one-shot runs and a WebSocket endpoint that streams run progress.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cerebricks/mailagent/internal/agent"
	"github.com/cerebricks/mailagent/internal/schema"
)

// AgentRunner is the slice of the runner the gateway needs.
type AgentRunner interface {
	Run(ctx context.Context, req agent.Request) (schema.SessionResult, error)
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Prompt   string `json:"prompt"`
	MaxTurns int    `json:"max_turns,omitempty"`
}

// QueryResponse is the body returned by POST /query.
type QueryResponse struct {
	Success        bool     `json:"success"`
	Prompt         string   `json:"prompt"`
	Response       string   `json:"response"`
	ToolsUsed      []string `json:"tools_used"`
	Turns          int      `json:"turns"`
	CostUSD        float64  `json:"cost_usd"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	Error          string   `json:"error,omitempty"`
}

// Server is the HTTP gateway.
type Server struct {
	runner AgentRunner
	port   int
	mux    *http.ServeMux
}

// New builds a gateway Server listening on port.
func New(runner AgentRunner, port int) *Server {
	s := &Server{runner: runner, port: port, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/query", s.handleQuery)
	s.mux.HandleFunc("/ws", s.handleWS)
	return s
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("gateway: listening", "port", s.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "mailagent",
		"endpoints": []string{"/status", "/query", "/ws"},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, QueryResponse{Error: "invalid request body"})
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, QueryResponse{Error: "prompt is required"})
		return
	}

	start := time.Now()
	result, err := s.runner.Run(r.Context(), agent.Request{
		Prompt:   req.Prompt,
		MaxTurns: req.MaxTurns,
	})
	elapsed := time.Since(start).Seconds()

	resp := QueryResponse{
		Prompt:         req.Prompt,
		ElapsedSeconds: elapsed,
	}
	if err != nil {
		slog.Error("gateway: run failed", "error", err)
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp.Success = result.Status == schema.StatusCompleted
	resp.Response = result.Response
	resp.ToolsUsed = result.ToolsUsed
	resp.Turns = result.Turns
	resp.CostUSD = result.CostUSD
	resp.Error = result.Error
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("gateway: write response", "error", err)
	}
}
