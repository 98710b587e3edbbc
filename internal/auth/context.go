// ABOUTME: SessionContext value object identifying the user behind a tutor session
// ABOUTME: Provides WithSession/FromContext for propagating identity via context

package auth

import (
	"context"
	"slices"
)

// SessionContext holds the identity a tutor session acts on behalf of.
type SessionContext struct {
	UserID       string
	Tier         Tier
	Capabilities []Capability
}

// NewSessionContext builds a SessionContext with the capabilities of tier.
func NewSessionContext(userID string, tier Tier) SessionContext {
	return SessionContext{
		UserID:       userID,
		Tier:         tier,
		Capabilities: CapabilitiesFor(tier),
	}
}

// Has reports whether the context carries capability c.
func (s SessionContext) Has(c Capability) bool {
	return slices.Contains(s.Capabilities, c)
}

// CanUseTutor reports whether the user may open tutor conversations.
// Requires an identified user of at least the student tier.
func (s SessionContext) CanUseTutor() bool {
	return s.UserID != "" && s.Tier.AtLeast(TierStudent)
}

// sessionContextKey is the key type for storing SessionContext in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the SessionContext attached.
func WithSession(ctx context.Context, sc SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sc)
}

// FromContext retrieves the SessionContext from the context.
func FromContext(ctx context.Context) (SessionContext, bool) {
	sc, ok := ctx.Value(sessionContextKey{}).(SessionContext)
	return sc, ok
}

// MustFromContext retrieves the SessionContext from the context, panicking if not present.
func MustFromContext(ctx context.Context) SessionContext {
	sc, ok := FromContext(ctx)
	if !ok {
		panic("auth: SessionContext not found in context")
	}
	return sc
}
