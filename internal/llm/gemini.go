// ABOUTME: Provider backed by the Google Gemini API via generative-ai-go
// ABOUTME: Maps conversation history to genai chat content and applies a per-call timeout

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when neither the config nor the prompt names a model.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiProvider creates a GeminiProvider. A zero timeout leaves the
// caller's context deadline in charge.
func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  slog.Default().With("component", "llm", "provider", "gemini"),
	}, nil
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Generate sends the prompt as a chat turn and returns the concatenated reply text.
func (p *GeminiProvider) Generate(ctx context.Context, prompt Prompt) (Reply, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	modelName := p.model
	if prompt.Model != "" {
		modelName = prompt.Model
	}

	gm := p.client.GenerativeModel(modelName)
	if prompt.SystemPrompt != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(prompt.SystemPrompt))
	}

	cs := gm.StartChat()
	cs.History = toContents(prompt.History)

	p.logger.Debug("generating reply", "model", modelName, "history", len(cs.History))

	resp, err := cs.SendMessage(ctx, genai.Text(prompt.UserText))
	if err != nil {
		return Reply{}, fmt.Errorf("gemini generate: %w", err)
	}

	reply := responseText(resp)
	if reply == "" {
		return Reply{}, ErrEmptyReply
	}
	return Reply{Text: reply, Usage: responseUsage(resp)}, nil
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// toContents maps prior turns to genai chat history. Empty turns are skipped.
func toContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := "user"
		if t.Role == RoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}
	return contents
}

// responseText joins the text parts of the first candidate in resp.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

func responseUsage(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

var _ Provider = (*GeminiProvider)(nil)
