// ABOUTME: Error taxonomy for tutor sessions
// ABOUTME: Fatal load errors reuse the store sentinels; the rest are recoverable

package conversation

import (
	"errors"

	"github.com/2389/coven-tutor/internal/store"
)

var (
	// ErrNotFound is returned when the agent or conversation is missing,
	// inactive, or bound to another agent.
	ErrNotFound = store.ErrNotFound

	// ErrAccessDenied is returned when a conversation belongs to another user
	// or the user's tier cannot use the tutor.
	ErrAccessDenied = store.ErrAccessDenied

	// ErrInvocationFailed is returned by SendMessage when no reply could be attached.
	ErrInvocationFailed = errors.New("invocation failed")

	// ErrMalformedResponse is returned when an invocation result cannot be reconciled.
	ErrMalformedResponse = errors.New("malformed invocation response")

	// ErrPersistence is returned when a rename or language switch was not saved.
	ErrPersistence = errors.New("persistence failed")

	// ErrInvalidLanguage is returned for languages outside the supported set.
	ErrInvalidLanguage = errors.New("unsupported language")

	// ErrDirectoryUnavailable is returned when the conversation list could not be loaded.
	ErrDirectoryUnavailable = errors.New("conversation directory unavailable")

	// ErrSuperseded is returned when a result arrived after the session was re-initialized.
	ErrSuperseded = errors.New("session superseded")

	// ErrNotInitialized is returned by operations that need a loaded agent.
	ErrNotInitialized = errors.New("session not initialized")
)
