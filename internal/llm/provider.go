// ABOUTME: Provider interface and prompt types shared by all model backends
// ABOUTME: New builds the configured provider from config.ModelConfig

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/coven-tutor/internal/config"
)

var (
	// ErrUnknownProvider is returned by New for an unrecognized provider name
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrEmptyReply is returned when a model produced no text
	ErrEmptyReply = errors.New("model returned an empty reply")
)

// Role identifies the speaker of a prior turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior exchange entry sent to the model as history.
type Turn struct {
	Role Role
	Text string
}

// Prompt is everything a provider needs to produce one reply.
type Prompt struct {
	SystemPrompt string
	History      []Turn
	UserText     string
	Model        string // overrides the provider's default model when set
}

// Usage is the token accounting reported for one reply. Providers that
// cannot count tokens leave it zero.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Reply is a generated answer.
type Reply struct {
	Text  string
	Usage Usage
}

// Provider generates a reply for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (Reply, error)
	Close() error
}

// New creates the provider named by cfg.Provider.
func New(ctx context.Context, cfg config.ModelConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "echo":
		return NewEchoProvider(), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
