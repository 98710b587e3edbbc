// ABOUTME: Timeline message variants: user turns, agent replies, and the synthesized intro
// ABOUTME: Converts stored messages into the timeline and the timeline into model history

package conversation

import (
	"strings"
	"time"

	"github.com/2389/coven-tutor/internal/llm"
	"github.com/2389/coven-tutor/internal/store"
)

// Kind names the variant of a timeline message.
type Kind string

const (
	KindUser  Kind = "user"
	KindAgent Kind = "agent"
	KindIntro Kind = "system-intro"
)

// Message is one entry of a session timeline. It is implemented only by
// UserMessage, AgentMessage, and IntroMessage.
type Message interface {
	Kind() Kind
	Body() string
	isMessage()
}

// UserMessage is a turn written by the user.
type UserMessage struct {
	ID           MessageID
	Conversation ConversationRef
	Text         string
	CreatedAt    time.Time
}

// AgentMessage is a reply from the agent. Failed marks a reply synthesized
// locally to explain an invocation failure.
type AgentMessage struct {
	ID           MessageID
	Conversation ConversationRef
	Text         string
	Failed       bool
	CreatedAt    time.Time
}

// IntroMessage is shown at the top of a draft for agents with a system
// prompt. It is never persisted.
type IntroMessage struct {
	Text string
}

func (UserMessage) Kind() Kind  { return KindUser }
func (AgentMessage) Kind() Kind { return KindAgent }
func (IntroMessage) Kind() Kind { return KindIntro }

func (m UserMessage) Body() string  { return m.Text }
func (m AgentMessage) Body() string { return m.Text }
func (m IntroMessage) Body() string { return m.Text }

func (UserMessage) isMessage()  {}
func (AgentMessage) isMessage() {}
func (IntroMessage) isMessage() {}

// introFor returns the initial draft timeline for agent.
func introFor(agent *store.Agent) []Message {
	prompt := strings.TrimSpace(agent.SystemPrompt)
	if prompt == "" {
		return []Message{}
	}
	return []Message{IntroMessage{Text: prompt}}
}

// fromStored converts persisted messages into timeline entries. A user turn
// that never got a reply was recorded before a failed invocation; it is
// followed by a failed agent message in lang, as the live session showed it.
func fromStored(msgs []*store.Message, lang store.Language) []Message {
	timeline := make([]Message, 0, len(msgs))
	unanswered := func() {
		if n := len(timeline); n > 0 {
			if user, ok := timeline[n-1].(UserMessage); ok {
				timeline = append(timeline, AgentMessage{
					ID:           LocalMessageID(NewLocalID()),
					Conversation: user.Conversation,
					Text:         failureText(lang),
					Failed:       true,
					CreatedAt:    user.CreatedAt,
				})
			}
		}
	}
	for _, m := range msgs {
		ref := RefTo(DurableID(m.ConversationID))
		id := DurableMessageID(DurableID(m.ID))
		switch m.Role {
		case store.RoleUser:
			unanswered()
			timeline = append(timeline, UserMessage{ID: id, Conversation: ref, Text: m.Content, CreatedAt: m.CreatedAt})
		case store.RoleAgent:
			timeline = append(timeline, AgentMessage{ID: id, Conversation: ref, Text: m.Content, CreatedAt: m.CreatedAt})
		}
	}
	unanswered()
	return timeline
}

// historyTurns maps a timeline to model history. The intro and failed replies
// are left out, along with the user turn each failed reply answered, so the
// history keeps alternating between user and model.
func historyTurns(timeline []Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(timeline))
	for _, m := range timeline {
		switch m := m.(type) {
		case UserMessage:
			turns = append(turns, llm.Turn{Role: llm.RoleUser, Text: m.Text})
		case AgentMessage:
			if m.Failed {
				if n := len(turns); n > 0 && turns[n-1].Role == llm.RoleUser {
					turns = turns[:n-1]
				}
				continue
			}
			turns = append(turns, llm.Turn{Role: llm.RoleModel, Text: m.Text})
		}
	}
	return turns
}

// failureText is the reply shown when the agent could not answer.
func failureText(lang store.Language) string {
	switch lang {
	case store.LanguageEnglish:
		return "Sorry, I couldn't answer right now. Please try again."
	case store.LanguageSpanish:
		return "Lo siento, no pude responder ahora. Inténtalo de nuevo."
	default:
		return "Desculpe, não consegui responder agora. Tente novamente."
	}
}
