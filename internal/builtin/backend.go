// Package builtin serves tools in-process, without a wire hop: the agent's
// in-process transport invokes these handlers directly and wraps their
// output in the standard content-array shape.
package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/cerebricks/mailagent/internal/emailer"
	"github.com/cerebricks/mailagent/internal/mcp"
)

// BackendName is the backend name the in-process tools are registered under.
const BackendName = "builtin"

// Handlers returns the in-process tool handlers. sender may be nil, in which
// case send_email is omitted. defaultFrom is used when a call omits
// from_email.
func Handlers(sender emailer.Sender, defaultFrom string) []mcp.Handler {
	var hs []mcp.Handler
	if sender != nil {
		hs = append(hs, NewSendEmailTool(sender, defaultFrom))
	}
	hs = append(hs, NewFetchPageTool())
	return hs
}

// schemaFor derives a tool input schema from an argument struct's json and
// jsonschema tags.
func schemaFor(v any) json.RawMessage {
	r := jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(v)
	s.Version = ""
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("builtin: reflect tool schema: %v", err))
	}
	return data
}

// decodeArgs maps loosely-typed tool arguments onto a typed argument struct.
func decodeArgs(args map[string]any, out any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
