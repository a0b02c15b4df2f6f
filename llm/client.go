// Package llm wraps the Anthropic Messages API behind a small text-in,
// text-out contract with bounded retry.
package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = eris.New("llm returned no text")

// Request is one single-turn completion.
type Request struct {
	Model       string
	MaxTokens   int64
	System      string
	User        string
	Temperature *float64
}

// Client performs one completion without retrying.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type anthropicClient struct {
	client sdk.Client
}

// NewAnthropicClient creates a Client backed by the official SDK. The SDK's
// own retries are disabled; Service owns the retry policy.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &anthropicClient{client: sdk.NewClient(all...)}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.User))},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", eris.Wrapf(ErrEmptyResponse, "stop reason %s", msg.StopReason)
	}
	return b.String(), nil
}
