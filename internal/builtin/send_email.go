package builtin

import (
	"context"
	"fmt"

	"github.com/cerebricks/mailagent/internal/emailer"
	"github.com/cerebricks/mailagent/internal/mcp"
)

type sendEmailArgs struct {
	ToEmail   string `json:"to_email" jsonschema:"description=Recipient email address"`
	FromEmail string `json:"from_email" jsonschema:"description=Sender email address"`
	Subject   string `json:"subject" jsonschema:"description=Email subject line"`
	Content   string `json:"content" jsonschema:"description=Email body, HTML is allowed"`
	CC        string `json:"cc,omitempty" jsonschema:"description=Optional CC address"`
}

type sendEmailTool struct {
	sender      emailer.Sender
	defaultFrom string
	schema      []byte
}

// NewSendEmailTool wraps the configured sender as an in-process tool.
// defaultFrom fills from_email when the caller omits it.
func NewSendEmailTool(sender emailer.Sender, defaultFrom string) mcp.Handler {
	return &sendEmailTool{
		sender:      sender,
		defaultFrom: defaultFrom,
		schema:      schemaFor(sendEmailArgs{}),
	}
}

func (t *sendEmailTool) Info() mcp.ToolInfo {
	return mcp.ToolInfo{
		Name:        "send_email",
		Description: "Send an email to a recipient. Supports HTML content and an optional CC address.",
		InputSchema: t.schema,
	}
}

func (t *sendEmailTool) Handle(ctx context.Context, args map[string]any) (string, error) {
	var in sendEmailArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.FromEmail == "" {
		in.FromEmail = t.defaultFrom
	}
	if in.ToEmail == "" || in.FromEmail == "" || in.Subject == "" || in.Content == "" {
		return "", fmt.Errorf("to_email, from_email, subject and content are required")
	}

	msg := emailer.Message{
		To:      in.ToEmail,
		From:    in.FromEmail,
		Subject: in.Subject,
		Body:    in.Content,
	}
	if in.CC != "" {
		msg.CC = []string{in.CC}
	}
	if _, err := t.sender.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("email send failed: %w", err)
	}

	cc := ""
	if in.CC != "" {
		cc = fmt.Sprintf(" (cc %s)", in.CC)
	}
	return fmt.Sprintf("Email sent from %s to %s%s - status 200", in.FromEmail, in.ToEmail, cc), nil
}
