// ABOUTME: Store interface and record types for coven-tutor persistence
// ABOUTME: Defines Agent, Conversation, Message structs and the Store contract

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrAccessDenied is returned when an entity exists but belongs to another user
var ErrAccessDenied = errors.New("access denied")

// ErrDuplicateConversation is returned when a conversation ID is already taken
var ErrDuplicateConversation = errors.New("conversation already exists")

// ErrDuplicateMessage is returned when a message ID is already taken
var ErrDuplicateMessage = errors.New("message already exists")

// Language is the reply language preference stored on a conversation.
type Language string

const (
	LanguagePortuguese Language = "Português"
	LanguageEnglish    Language = "English"
	LanguageSpanish    Language = "Español"
)

// DefaultLanguage is the primary language new conversations start in.
const DefaultLanguage = LanguagePortuguese

// Languages lists the accepted language preferences in display order.
func Languages() []Language {
	return []Language{LanguagePortuguese, LanguageEnglish, LanguageSpanish}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, known := range Languages() {
		if l == known {
			return true
		}
	}
	return false
}

// Role is the sender of a persisted message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Agent is a configured language-model persona a user converses with.
type Agent struct {
	ID           string
	Provider     string // "echo", "gemini"
	Name         string
	Variant      string // model name, empty for the provider default
	SystemPrompt string
	AvatarURL    string
	Active       bool
	CreatedAt    time.Time
}

// Conversation is a durable chat thread between one user and one agent.
type Conversation struct {
	ID        string
	UserID    string
	AgentID   string
	Title     string
	Language  Language
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single persisted turn within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// ConversationPatch holds the user-editable fields of a conversation.
// Nil fields are left unchanged.
type ConversationPatch struct {
	Title    *string
	Language *Language
}

// Store defines the record store used by the tutor
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, agent *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id, userID, agentID string) (*Conversation, error)
	ListConversations(ctx context.Context, userID, agentID string, limit int) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, id, userID string, patch ConversationPatch) error
	TouchConversation(ctx context.Context, id string, at time.Time) error

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	UsageStore

	// Close releases any resources held by the store
	Close() error
}
