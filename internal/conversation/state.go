// ABOUTME: Read-only snapshot of a tutor session exposed to the presentation layer
// ABOUTME: Phase reports Loading, DraftConversation, ActiveConversation, or Sending

package conversation

import (
	"github.com/2389/coven-tutor/internal/store"
)

// Phase is the externally visible state of a session.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseDraft
	PhaseActive
	PhaseSending
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "Loading"
	case PhaseDraft:
		return "DraftConversation"
	case PhaseActive:
		return "ActiveConversation"
	case PhaseSending:
		return "Sending"
	default:
		return "Unknown"
	}
}

// State is a snapshot of a session. Callers own the returned values.
type State struct {
	Phase         Phase
	Agent         *store.Agent
	Conversation  *store.Conversation // nil while drafting
	Messages      []Message
	Conversations []store.Conversation
	Language      store.Language
	Sending       bool

	// Title editing
	EditingTitle bool
	TitleDraft   string
}

// ConversationID returns the bound conversation ID, or "" while drafting.
func (s State) ConversationID() string {
	if s.Conversation == nil {
		return ""
	}
	return s.Conversation.ID
}
