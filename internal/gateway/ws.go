package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cerebricks/mailagent/internal/agent"
	"github.com/cerebricks/mailagent/internal/schema"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFrame is one streamed event. Type is one of "start", "reasoning",
// "response", "done" or "error".
type wsFrame struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Result  *QueryResponse `json:"result,omitempty"`
}

// handleWS streams a run over a WebSocket. The client sends one
// QueryRequest per run; each run produces a start frame, zero or more
// reasoning frames, a response frame and a done frame. All writes happen
// on this goroutine, including those driven by the progress callback,
// because Run is synchronous.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req QueryRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("gateway: websocket read", "error", err)
			}
			return
		}
		if req.Prompt == "" {
			if err := conn.WriteJSON(wsFrame{Type: "error", Message: "prompt is required"}); err != nil {
				return
			}
			continue
		}
		if !s.runWS(conn, r, req) {
			return
		}
	}
}

// runWS executes one run and streams its frames. It returns false when the
// connection is no longer usable.
func (s *Server) runWS(conn *websocket.Conn, r *http.Request, req QueryRequest) bool {
	if err := conn.WriteJSON(wsFrame{Type: "start", Message: req.Prompt}); err != nil {
		return false
	}

	writeFailed := false
	progress := func(message string) {
		if writeFailed {
			return
		}
		if err := conn.WriteJSON(wsFrame{Type: "reasoning", Message: message}); err != nil {
			writeFailed = true
		}
	}

	result, err := s.runner.Run(r.Context(), agent.Request{
		Prompt:     req.Prompt,
		MaxTurns:   req.MaxTurns,
		OnProgress: progress,
	})
	if writeFailed {
		return false
	}
	if err != nil {
		slog.Error("gateway: websocket run failed", "error", err)
		return conn.WriteJSON(wsFrame{Type: "error", Message: err.Error()}) == nil
	}

	if err := conn.WriteJSON(wsFrame{Type: "response", Message: result.Response}); err != nil {
		return false
	}
	done := wsFrame{Type: "done", Result: &QueryResponse{
		Success:   result.Status == schema.StatusCompleted,
		Prompt:    req.Prompt,
		Response:  result.Response,
		ToolsUsed: result.ToolsUsed,
		Turns:     result.Turns,
		CostUSD:   result.CostUSD,
		Error:     result.Error,
	}}
	return conn.WriteJSON(done) == nil
}
