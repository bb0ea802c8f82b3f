// Package providers implements schema.LLMProvider over the Anthropic
// Messages API and any OpenAI-compatible chat completion endpoint, using
// direct HTTP so one code path serves every vendor.
package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cerebricks/mailagent/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	ExtraHeaders map[string]string
	DefaultModel string
	ProviderName string // "anthropic", "openai", "openrouter", "custom"
}

// New creates the appropriate schema.LLMProvider for the given params.
// Anthropic gets its native Messages API; everything else goes through the
// OpenAI-compatible path.
func New(p Params) schema.LLMProvider {
	if p.ProviderName == "anthropic" ||
		strings.Contains(strings.ToLower(p.APIBase), "anthropic.com") {
		return NewAnthropicProvider(p.APIKey, p.APIBase, p.DefaultModel, p.ExtraHeaders)
	}
	return NewOpenAIProvider(p.APIKey, p.APIBase, p.DefaultModel, p.ExtraHeaders)
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage characters. This handles some LLMs that emit truncated tool
// arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	// Attempt 1: trim trailing non-JSON characters.
	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	// Attempt 2: find the last complete JSON object.
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}

func friendlyHTTPError(code int, body []byte) string {
	if code == 429 {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

func anyToString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
