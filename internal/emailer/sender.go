// Package emailer sends email through AWS SES and exposes the capability as
// an MCP tool server.
package emailer

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Message is one outbound email.
type Message struct {
	To      string
	From    string
	CC      []string
	Subject string
	Body    string
}

// Sender delivers email. Implementations must be safe for concurrent use.
type Sender interface {
	// Send delivers msg and returns the provider's message id.
	Send(ctx context.Context, msg Message) (string, error)
}

// SESSender sends email through AWS SES v2.
// Both sender and recipient addresses must be SES-verified in sandbox mode.
type SESSender struct {
	client *sesv2.Client
}

// NewSESSender builds a sender using the default AWS credential chain.
// region overrides the environment's AWS region when non-empty.
func NewSESSender(ctx context.Context, region string) (*SESSender, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESSender{client: sesv2.NewFromConfig(cfg)}, nil
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, msg Message) (string, error) {
	dest := &types.Destination{
		ToAddresses: []string{msg.To},
	}
	if len(msg.CC) > 0 {
		dest.CcAddresses = msg.CC
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &msg.From,
		Destination:      dest,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body: &types.Body{
					Html: &types.Content{Data: &msg.Body},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("SES send failed: %w", err)
	}

	id := ""
	if out.MessageId != nil {
		id = *out.MessageId
	}
	return id, nil
}
