package emailer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cerebricks/mailagent/internal/mcp"
)

// sendEmailSchema is the published input schema for the send_email tool.
var sendEmailSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"to_email":   {"type": "string", "description": "Recipient email address"},
		"from_email": {"type": "string", "description": "Sender email address (must be SES-verified)"},
		"subject":    {"type": "string", "description": "Email subject line"},
		"content":    {"type": "string", "description": "Email body (HTML supported)"},
		"cc":         {"type": "array", "items": {"type": "string"}, "description": "CC recipients (optional)"}
	},
	"required": ["to_email", "from_email", "subject", "content"]
}`)

// SendEmailTool is the tool descriptor this server publishes.
var SendEmailTool = mcp.ToolInfo{
	Name:        "send_email",
	Description: "Send an email via AWS SES. Both to_email and from_email must be SES-verified addresses.",
	InputSchema: sendEmailSchema,
}

// Server is an HTTP MCP server exposing the send_email tool over JSON-RPC.
//
// GET / answers health probes; POST / handles initialize, tools/list and
// tools/call. Messages without an id are notifications and are answered
// with 204 and no body, per the JSON-RPC notification rule.
type Server struct {
	sender Sender
}

// NewServer wraps sender in an MCP tool server.
func NewServer(sender Sender) *Server {
	return &Server{sender: sender}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "email-mcp-server"})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch req.Method {
	case "initialize":
		s.writeResult(w, req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "email-mcp-server", "version": "2.0.0"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		})

	case "tools/list":
		s.writeResult(w, req.ID, map[string]any{"tools": []mcp.ToolInfo{SendEmailTool}})

	case "tools/call":
		s.handleToolCall(w, r, req.ID, req.Params.Name, req.Params.Arguments)

	default:
		if isNullID(req.ID) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.writeError(w, req.ID, mcp.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request, id json.RawMessage, name string, args map[string]any) {
	if name != "send_email" {
		s.writeError(w, id, mcp.CodeMethodNotFound, fmt.Sprintf("Tool not found: %s", name))
		return
	}

	msg, err := messageFromArgs(args)
	if err != nil {
		s.writeError(w, id, mcp.CodeToolFailure, err.Error())
		return
	}

	if _, err := s.sender.Send(r.Context(), msg); err != nil {
		slog.Error("send_email failed", "to", msg.To, "err", err)
		s.writeError(w, id, mcp.CodeToolFailure, fmt.Sprintf("Email send failed: %v", err))
		return
	}

	ccNote := ""
	if len(msg.CC) > 0 {
		ccNote = fmt.Sprintf(", cc: %s", strings.Join(msg.CC, ", "))
	}
	text := fmt.Sprintf("Email sent from %s to %s%s - status 200", msg.From, msg.To, ccNote)
	slog.Info("Email sent", "from", msg.From, "to", msg.To)

	s.writeResult(w, id, map[string]any{
		"content": []mcp.ContentBlock{{Type: "text", Text: text}},
	})
}

// messageFromArgs validates the tool arguments against the required fields.
func messageFromArgs(args map[string]any) (Message, error) {
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}
	msg := Message{
		To:      str("to_email"),
		From:    str("from_email"),
		Subject: str("subject"),
		Body:    str("content"),
	}
	if msg.To == "" || msg.From == "" || msg.Subject == "" || msg.Body == "" {
		return Message{}, fmt.Errorf("missing required arguments: to_email, from_email, subject, content")
	}
	if raw, ok := args["cc"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				msg.CC = append(msg.CC, s)
			}
		}
	}
	return msg, nil
}

func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	if isNullID(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	if isNullID(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   mcp.RPCError{Code: code, Message: message},
	})
}

func isNullID(id json.RawMessage) bool {
	return len(id) == 0 || string(id) == "null"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
