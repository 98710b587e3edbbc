// ABOUTME: Invocation service: records a user turn, calls the model, records the reply
// ABOUTME: Mints a conversation once per draft, and only after a successful reply

package invocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-tutor/internal/dedupe"
	"github.com/2389/coven-tutor/internal/llm"
	"github.com/2389/coven-tutor/internal/store"
)

var (
	// ErrInvocation wraps failures of the model provider
	ErrInvocation = errors.New("model invocation failed")

	// ErrInvalidRequest is returned for requests missing required fields
	ErrInvalidRequest = errors.New("invalid invocation request")

	// ErrMintInProgress is returned when another send from the same draft is
	// still creating its conversation
	ErrMintInProgress = errors.New("conversation is still being created")
)

// persistTimeout bounds reply persistence after the caller's context is gone.
const persistTimeout = 5 * time.Second

// messageNamespace scopes message IDs derived from request IDs.
var messageNamespace = uuid.MustParse("6f1b7a52-3c0e-4f8e-9a57-2a8d3e7c4b10")

// InvocationStore defines what the service needs from storage
type InvocationStore interface {
	CreateConversation(ctx context.Context, conv *store.Conversation) error
	GetConversation(ctx context.Context, id, userID, agentID string) (*store.Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error
	SaveMessage(ctx context.Context, msg *store.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
	SaveUsage(ctx context.Context, usage *store.TokenUsage) error
}

// Request is one user turn to be answered by the agent.
type Request struct {
	RequestID      string // caller-chosen, stable across retries
	UserID         string
	AgentID        string
	ConversationID string // empty to start a new conversation
	DraftKey       string // shared by every send from one draft; defaults to RequestID
	UserText       string
	SystemPrompt   string
	Model          string
	Language       store.Language
	History        []llm.Turn
}

// Result is the outcome of a successful invocation.
type Result struct {
	ReplyText string

	// Set only when the request started a new conversation.
	NewConversationID    string
	NewConversationTitle string
}

// Service answers user turns with a model provider, persisting both sides.
type Service struct {
	store    InvocationStore
	provider llm.Provider
	minted   *dedupe.Cache
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new invocation Service. minted remembers which conversation
// each request created.
func New(s InvocationStore, provider llm.Provider, minted *dedupe.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    s,
		provider: provider,
		minted:   minted,
		logger:   logger.With("component", "invocation"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Invoke answers one user turn and records both sides.
//
// Key principle: Record first, then act. In an existing conversation the user
// message is stored before the provider is called. A draft has nothing to
// record into yet, so its conversation is reserved, the provider is called,
// and only a successful reply creates the conversation with both messages.
func (s *Service) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !req.Language.Valid() {
		req.Language = store.DefaultLanguage
	}

	if req.ConversationID != "" {
		conv, err := s.store.GetConversation(ctx, req.ConversationID, req.UserID, req.AgentID)
		if err != nil {
			return nil, fmt.Errorf("loading conversation: %w", err)
		}
		return s.answer(ctx, req, conv, &Result{})
	}

	key := mintKey(req)
	if id, ok := s.minted.Lookup(key); ok {
		return s.answerMinted(ctx, req, key, id)
	}
	id, claimed := s.minted.Claim(key, uuid.NewString())
	if !claimed {
		return s.answerMinted(ctx, req, key, id)
	}
	return s.mint(ctx, req, key, id)
}

// answerMinted answers a draft send whose conversation an earlier send from
// the same draft already created.
func (s *Service) answerMinted(ctx context.Context, req Request, key, id string) (*Result, error) {
	conv, err := s.store.GetConversation(ctx, id, req.UserID, req.AgentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: draft %q", ErrMintInProgress, key)
	}
	if err != nil {
		return nil, fmt.Errorf("loading minted conversation: %w", err)
	}
	s.logger.Debug("reusing conversation minted by earlier attempt",
		"mint_key", key, "conversation_id", id)
	return s.answer(ctx, req, conv, &Result{
		NewConversationID:    conv.ID,
		NewConversationTitle: conv.Title,
	})
}

// mint calls the provider for the first turn of a draft and, on success,
// creates the conversation and records both messages. On failure the
// reservation is released and nothing is stored.
func (s *Service) mint(ctx context.Context, req Request, key, id string) (*Result, error) {
	startedAt := s.now()

	reply, err := s.generate(ctx, req, "")
	if err != nil {
		s.minted.Forget(key)
		return nil, err
	}

	// The reply exists; persist it even if the caller has gone away
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	conv := &store.Conversation{
		ID:        id,
		UserID:    req.UserID,
		AgentID:   req.AgentID,
		Title:     DeriveTitle(req.UserText),
		Language:  req.Language,
		CreatedAt: startedAt,
		UpdatedAt: startedAt,
	}
	if err := s.store.CreateConversation(pctx, conv); err != nil {
		s.minted.Forget(key)
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Info("conversation created",
		"conversation_id", conv.ID,
		"user_id", req.UserID,
		"agent_id", req.AgentID)

	if err := s.store.SaveMessage(pctx, &store.Message{
		ID:             messageID(req, "user"),
		ConversationID: conv.ID,
		Role:           store.RoleUser,
		Content:        req.UserText,
		CreatedAt:      startedAt,
	}); err != nil && !errors.Is(err, store.ErrDuplicateMessage) {
		return nil, fmt.Errorf("recording user message: %w", err)
	}
	s.saveReply(pctx, req, conv.ID, reply)

	return &Result{
		ReplyText:            reply.Text,
		NewConversationID:    conv.ID,
		NewConversationTitle: conv.Title,
	}, nil
}

// answer records the user turn in an existing conversation, asks the
// provider, and records the reply.
func (s *Service) answer(ctx context.Context, req Request, conv *store.Conversation, result *Result) (*Result, error) {
	// 1. Record the user message FIRST
	userMsgID := messageID(req, "user")

	err := s.store.SaveMessage(ctx, &store.Message{
		ID:             userMsgID,
		ConversationID: conv.ID,
		Role:           store.RoleUser,
		Content:        req.UserText,
		CreatedAt:      s.now(),
	})
	switch {
	case errors.Is(err, store.ErrDuplicateMessage):
		// Retry of a request we already recorded; reuse its reply if it exists.
		if reply, ok := s.recordedReply(ctx, conv.ID, messageID(req, "agent")); ok {
			s.logger.Debug("returning recorded reply for retried request",
				"request_id", req.RequestID, "conversation_id", conv.ID)
			result.ReplyText = reply
			return result, nil
		}
	case err != nil:
		return nil, fmt.Errorf("recording user message: %w", err)
	}

	s.logger.Debug("user message recorded",
		"conversation_id", conv.ID,
		"message_id", userMsgID,
		"user_id", req.UserID)

	// 2. Ask the model
	reply, err := s.generate(ctx, req, conv.ID)
	if err != nil {
		return nil, err
	}

	// 3. Record the reply even if the caller has gone away
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	s.saveReply(pctx, req, conv.ID, reply)

	result.ReplyText = reply.Text
	return result, nil
}

// generate calls the provider with the language instruction applied.
func (s *Service) generate(ctx context.Context, req Request, conversationID string) (llm.Reply, error) {
	reply, err := s.provider.Generate(ctx, llm.Prompt{
		SystemPrompt: withLanguage(req.SystemPrompt, req.Language),
		History:      req.History,
		UserText:     req.UserText,
		Model:        req.Model,
	})
	if err != nil {
		s.logger.Warn("model invocation failed",
			"conversation_id", conversationID,
			"provider", s.provider.Name(),
			"error", err)
		return llm.Reply{}, fmt.Errorf("%w: %w", ErrInvocation, err)
	}
	return reply, nil
}

func validate(req Request) error {
	switch {
	case req.RequestID == "":
		return fmt.Errorf("%w: request_id is required", ErrInvalidRequest)
	case req.UserID == "":
		return fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	case req.AgentID == "":
		return fmt.Errorf("%w: agent_id is required", ErrInvalidRequest)
	case strings.TrimSpace(req.UserText) == "":
		return fmt.Errorf("%w: user text is required", ErrInvalidRequest)
	}
	return nil
}

// mintKey scopes conversation minting to the draft, or to the request when
// the caller did not name a draft.
func mintKey(req Request) string {
	key := req.DraftKey
	if key == "" {
		key = req.RequestID
	}
	return req.UserID + "/" + req.AgentID + "/" + key
}

// recordedReply looks up a reply persisted by an earlier attempt.
func (s *Service) recordedReply(ctx context.Context, conversationID, replyID string) (string, bool) {
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		s.logger.Warn("failed to load messages for retried request", "conversation_id", conversationID, "error", err)
		return "", false
	}
	for _, m := range msgs {
		if m.ID == replyID {
			return m.Content, true
		}
	}
	return "", false
}

// saveReply persists the agent reply and its token usage, then touches the
// conversation. ctx must already be detached from the caller's cancellation.
func (s *Service) saveReply(ctx context.Context, req Request, conversationID string, reply llm.Reply) {
	msg := &store.Message{
		ID:             messageID(req, "agent"),
		ConversationID: conversationID,
		Role:           store.RoleAgent,
		Content:        reply.Text,
		CreatedAt:      s.now(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil && !errors.Is(err, store.ErrDuplicateMessage) {
		s.logger.Error("failed to record reply",
			"conversation_id", msg.ConversationID,
			"message_id", msg.ID,
			"error", err)
	}

	usage := &store.TokenUsage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		MessageID:      msg.ID,
		AgentID:        req.AgentID,
		UserID:         req.UserID,
		InputTokens:    reply.Usage.InputTokens,
		OutputTokens:   reply.Usage.OutputTokens,
		CreatedAt:      msg.CreatedAt,
	}
	if err := s.store.SaveUsage(ctx, usage); err != nil {
		s.logger.Warn("failed to record token usage", "message_id", msg.ID, "error", err)
	}
	if err := s.store.TouchConversation(ctx, conversationID, msg.CreatedAt); err != nil {
		s.logger.Warn("failed to touch conversation", "conversation_id", conversationID, "error", err)
	}
}

// messageID derives a stable message ID from the request so retries collide.
func messageID(req Request, role string) string {
	return uuid.NewSHA1(messageNamespace, []byte(req.UserID+"/"+req.RequestID+"/"+role)).String()
}

// withLanguage appends the reply-language instruction to the system prompt.
func withLanguage(systemPrompt string, lang store.Language) string {
	instruction := fmt.Sprintf("Always reply in %s.", lang)
	if strings.TrimSpace(systemPrompt) == "" {
		return instruction
	}
	return strings.TrimRight(systemPrompt, "\n") + "\n\n" + instruction
}
