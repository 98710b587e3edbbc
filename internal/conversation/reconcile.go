// ABOUTME: Message Reconciler: binds an optimistic send to durable identifiers
// ABOUTME: Builds the new conversation for a draft and the agent reply for the timeline

package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/2389/coven-tutor/internal/invocation"
	"github.com/2389/coven-tutor/internal/store"
)

// pendingSend is what the session knew when it started an invocation.
type pendingSend struct {
	message  UserMessage
	current  *store.Conversation // nil while drafting
	userID   string
	agentID  string
	language store.Language
}

// reconciliation is the change to apply to the session after a successful invocation.
type reconciliation struct {
	created *store.Conversation // set when the send started a new conversation
	userRef ConversationRef     // conversation reference for the pending user message
	reply   AgentMessage
}

// reconcile maps an invocation result onto the session's identifiers. A
// result that cannot be reconciled returns ErrMalformedResponse and must be
// handled like an invocation failure.
func reconcile(p pendingSend, result *invocation.Result, now time.Time) (reconciliation, error) {
	if result == nil {
		return reconciliation{}, fmt.Errorf("%w: empty result", ErrMalformedResponse)
	}
	if strings.TrimSpace(result.ReplyText) == "" {
		return reconciliation{}, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var r reconciliation
	if p.current == nil {
		if result.NewConversationID == "" {
			return reconciliation{}, fmt.Errorf("%w: draft send returned no conversation id", ErrMalformedResponse)
		}
		if strings.TrimSpace(result.NewConversationTitle) == "" {
			return reconciliation{}, fmt.Errorf("%w: new conversation %s has no title", ErrMalformedResponse, result.NewConversationID)
		}

		id := DurableID(result.NewConversationID)
		r.created = &store.Conversation{
			ID:        string(id),
			UserID:    p.userID,
			AgentID:   p.agentID,
			Title:     result.NewConversationTitle,
			Language:  p.language,
			CreatedAt: p.message.CreatedAt,
			UpdatedAt: now,
		}
		r.userRef = p.message.Conversation.Bind(id)
	} else {
		r.userRef = p.message.Conversation
	}

	r.reply = AgentMessage{
		ID:           LocalMessageID(NewLocalID()),
		Conversation: r.userRef,
		Text:         result.ReplyText,
		CreatedAt:    now,
	}
	return r, nil
}
