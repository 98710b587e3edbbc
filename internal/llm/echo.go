// ABOUTME: Offline provider that answers deterministically from the prompt
// ABOUTME: Used as the default backend and in tests that need a real Provider

package llm

import (
	"context"
	"fmt"
	"strings"
)

// EchoProvider replies by echoing the user's text. It counts prior user
// turns so that replies differ across a conversation.
type EchoProvider struct{}

// NewEchoProvider creates an EchoProvider.
func NewEchoProvider() *EchoProvider {
	return &EchoProvider{}
}

// Name returns "echo".
func (p *EchoProvider) Name() string {
	return "echo"
}

// Generate returns "echo #N: <text>" where N is the 1-based user turn number.
// Usage counts whitespace-separated words.
func (p *EchoProvider) Generate(ctx context.Context, prompt Prompt) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	text := strings.TrimSpace(prompt.UserText)
	if text == "" {
		return Reply{}, ErrEmptyReply
	}

	turn := 1
	input := len(strings.Fields(prompt.SystemPrompt)) + len(strings.Fields(text))
	for _, t := range prompt.History {
		if t.Role == RoleUser {
			turn++
		}
		input += len(strings.Fields(t.Text))
	}

	reply := fmt.Sprintf("echo #%d: %s", turn, text)
	return Reply{
		Text:  reply,
		Usage: Usage{InputTokens: input, OutputTokens: len(strings.Fields(reply))},
	}, nil
}

// Close is a no-op.
func (p *EchoProvider) Close() error {
	return nil
}

var _ Provider = (*EchoProvider)(nil)
