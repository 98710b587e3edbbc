// Package conversation implements the tutor chat session.
//
// # Overview
//
// A Session owns the state of one tutor screen: the selected agent, the bound
// conversation (nil while drafting), the message timeline, the in-flight flag,
// the reply language, and the title-edit sub-state. The presentation layer
// drives it through transitions and renders the snapshots it publishes:
//
//	sess := conversation.NewSession(conversation.Deps{Store: st, Invoker: svc})
//	err := sess.Initialize(ctx, sc, "agent-1", "")
//	err = sess.SendMessage(ctx, "Olá")
//
// # Phases
//
//	Loading -> DraftConversation <-> ActiveConversation
//	                  \                    /
//	                   +----> Sending ----+
//
// A draft has no durable conversation yet. The first successful send mints
// one; the Message Reconciler then binds the optimistic user message to it,
// prepends it to the Directory, and navigates to its route so a reload
// resumes the same conversation.
//
// # Identifiers
//
// LocalID and DurableID are distinct types. Optimistic messages carry a
// LocalID and a ConversationRef; binding a draft reference is a typed
// operation (ConversationRef.Bind), never string inspection.
//
// # Concurrency
//
// Only one send may be in flight; further sends are ignored until it
// completes. Renames and language switches may run alongside a send. Every
// Initialize and StartNewChat starts a new generation, and completions from
// an older generation are discarded with ErrSuperseded. The session imposes
// no invocation timeout: a call that never returns leaves Sending set until
// the caller's context ends.
//
// # Errors
//
// ErrNotFound and ErrAccessDenied are fatal to Initialize and redirect to
// FallbackRoute. Invocation failures append a failed agent message and exit
// Sending. Rename and language failures keep the previous value and wrap
// ErrPersistence. Directory failures are notifications or log lines only.
package conversation
