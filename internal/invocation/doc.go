// Package invocation is the model invocation service behind a tutor session.
//
// Invoke takes one user turn and carries it through the record store and a
// model provider. In an existing conversation:
//
//  1. Record the user message.
//  2. Ask the provider for a reply in the conversation's language.
//  3. Record the reply and its token usage, then bump the conversation's
//     last-update time.
//
// The user message is recorded before the provider is called, so a failing
// model never loses what the user wrote.
//
// A draft has no conversation yet. Its conversation ID is reserved, the
// provider is called, and only a successful reply creates the conversation,
// titled after the user text, together with both messages. A failed first
// reply releases the reservation and stores nothing.
//
// # Retries
//
// Every request carries a RequestID chosen by the caller. Conversations minted
// for a draft are remembered in a dedupe.Cache under its DraftKey, or its
// RequestID when no draft is named, so every send from one draft lands in the
// same conversation. Message IDs are derived from the RequestID, so retrying a
// request returns the recorded reply instead of creating duplicates.
package invocation
