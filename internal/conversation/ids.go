// ABOUTME: Distinct identifier types for optimistic (local) and persisted (durable) records
// ABOUTME: ConversationRef is either the draft sentinel or a durable conversation ID

package conversation

import (
	"github.com/google/uuid"
)

// LocalID identifies something that exists only in this session, such as an
// optimistic message that has not been confirmed by the store.
type LocalID string

// localPrefix marks local IDs so they are recognizable in logs.
const localPrefix = "local-"

// NewLocalID returns a fresh, time-ordered local ID.
func NewLocalID() LocalID {
	return LocalID(localPrefix + uuid.Must(uuid.NewV7()).String())
}

// DurableID is an identifier assigned and persisted by the record store.
type DurableID string

// ConversationRef points a message at its conversation. The zero value is the
// draft sentinel used before a conversation exists.
type ConversationRef struct {
	id DurableID
}

// DraftRef is the reference carried by messages sent before a conversation exists.
var DraftRef = ConversationRef{}

// RefTo returns a reference to a durable conversation.
func RefTo(id DurableID) ConversationRef {
	return ConversationRef{id: id}
}

// IsDraft reports whether r is the draft sentinel.
func (r ConversationRef) IsDraft() bool {
	return r.id == ""
}

// ID returns the durable conversation ID, or false for the draft sentinel.
func (r ConversationRef) ID() (DurableID, bool) {
	return r.id, r.id != ""
}

// Bind rewrites a draft reference to point at id. References that are
// already bound are returned unchanged.
func (r ConversationRef) Bind(id DurableID) ConversationRef {
	if !r.IsDraft() {
		return r
	}
	return RefTo(id)
}

func (r ConversationRef) String() string {
	if r.IsDraft() {
		return "draft"
	}
	return string(r.id)
}

// MessageID identifies a message in the timeline: local for optimistic
// messages created in this session, durable for history loaded from the store.
type MessageID struct {
	local   LocalID
	durable DurableID
}

// LocalMessageID wraps a local ID.
func LocalMessageID(id LocalID) MessageID {
	return MessageID{local: id}
}

// DurableMessageID wraps a store-assigned ID.
func DurableMessageID(id DurableID) MessageID {
	return MessageID{durable: id}
}

// Local returns the local ID, or false for durable messages.
func (m MessageID) Local() (LocalID, bool) {
	return m.local, m.local != ""
}

// Durable returns the durable ID, or false for local messages.
func (m MessageID) Durable() (DurableID, bool) {
	return m.durable, m.durable != ""
}

func (m MessageID) String() string {
	if m.local != "" {
		return string(m.local)
	}
	return string(m.durable)
}
