// Package store provides persistent storage for coven-tutor using SQLite.
//
// # Architecture
//
// A single Store interface covers the durable collections the tutor needs:
//
//   - Agent: model configuration (provider, variant, system prompt, avatar)
//   - Conversation: a user's thread with one agent (title, language)
//   - Message: persisted user/agent turns, ordered by creation time
//   - TokenUsage: tokens consumed by each agent reply, aggregated by GetUsageStats
//
// SQLiteStore is the production implementation; MockStore is an in-memory
// implementation with per-operation error injection for unit tests.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads. Foreign keys and
// a busy timeout are set per connection through the DSN:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// Timestamps are stored as fixed-width UTC text so that ORDER BY on the
// column is chronological. Messages sharing a timestamp keep insertion order.
//
// # Ownership
//
// GetConversation takes the requesting user and agent. A conversation owned
// by another user yields ErrAccessDenied; a missing conversation, or one bound
// to a different agent, yields ErrNotFound. UpdateConversation only touches
// rows owned by the given user.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	s := store.NewMockStore()
//	s.SetErr(&s.ErrUpdateConversation, errors.New("offline"))
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) for integration tests.
package store
