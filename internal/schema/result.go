package schema

// Run outcome statuses.
const (
	StatusCompleted = "completed"         // model produced a final answer
	StatusMaxTurns  = "max_turns_reached" // turn budget exhausted before a final answer
	StatusError     = "error"             // unrecoverable failure ended the run
)

// SessionResult is the externally visible outcome of one agent run.
//
// Turns never exceeds the configured turn budget. ToolsUsed lists the tool
// names actually invoked, in invocation order; its length is independent of
// Turns since a turn may invoke zero or many tools.
type SessionResult struct {
	Response  string   `json:"response"`
	ToolsUsed []string `json:"tools_used"`
	Turns     int      `json:"turns"`
	CostUSD   float64  `json:"cost_usd"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
}
