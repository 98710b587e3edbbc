// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures per operation

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	agents        map[string]*Agent        // keyed by agent ID
	conversations map[string]*Conversation // keyed by conversation ID
	convOrder     map[string]int           // insertion sequence, breaks updated_at ties
	messages      map[string][]*Message    // keyed by conversation ID
	usage         []*TokenUsage
	seq           int

	// Err* fields, when set, are returned by the matching operation.
	ErrGetAgent           error
	ErrGetConversation    error
	ErrListConversations  error
	ErrListMessages       error
	ErrUpdateConversation error

	// Calls counts operations by method name.
	Calls map[string]int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		agents:        make(map[string]*Agent),
		conversations: make(map[string]*Conversation),
		convOrder:     make(map[string]int),
		messages:      make(map[string][]*Message),
		Calls:         make(map[string]int),
	}
}

func (m *MockStore) count(method string) {
	m.Calls[method]++
}

// CallCount returns how many times method was invoked.
func (m *MockStore) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[method]
}

// SetErr sets an injected error under the store lock.
func (m *MockStore) SetErr(target *error, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*target = err
}

// CreateAgent stores a new agent.
func (m *MockStore) CreateAgent(ctx context.Context, agent *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("CreateAgent")

	a := *agent
	m.agents[a.ID] = &a
	return nil
}

// GetAgent retrieves an agent by ID.
func (m *MockStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetAgent")

	if m.ErrGetAgent != nil {
		return nil, m.ErrGetAgent
	}
	a, ok := m.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *a
	return &result, nil
}

// ListAgents returns all agents ordered by name.
func (m *MockStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListAgents")

	agents := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		copied := *a
		agents = append(agents, &copied)
	}
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Name != agents[j].Name {
			return agents[i].Name < agents[j].Name
		}
		return agents[i].ID < agents[j].ID
	})
	return agents, nil
}

// CreateConversation stores a new conversation.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("CreateConversation")

	if _, exists := m.conversations[conv.ID]; exists {
		return ErrDuplicateConversation
	}
	if _, ok := m.agents[conv.AgentID]; !ok {
		return ErrNotFound
	}

	c := *conv
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	m.seq++
	m.conversations[c.ID] = &c
	m.convOrder[c.ID] = m.seq
	return nil
}

// GetConversation retrieves a conversation by ID for the given user and agent.
func (m *MockStore) GetConversation(ctx context.Context, id, userID, agentID string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetConversation")

	if m.ErrGetConversation != nil {
		return nil, m.ErrGetConversation
	}
	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *c
	return checkOwnership(&result, userID, agentID)
}

// ListConversations retrieves conversations most recently updated first.
func (m *MockStore) ListConversations(ctx context.Context, userID, agentID string, limit int) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListConversations")

	if m.ErrListConversations != nil {
		return nil, m.ErrListConversations
	}

	var convs []*Conversation
	for _, c := range m.conversations {
		if c.UserID == userID && c.AgentID == agentID {
			copied := *c
			convs = append(convs, &copied)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
		}
		return m.convOrder[convs[i].ID] > m.convOrder[convs[j].ID]
	})

	limit = clampLimit(limit)
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

// UpdateConversation applies a patch to a conversation owned by userID.
func (m *MockStore) UpdateConversation(ctx context.Context, id, userID string, patch ConversationPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("UpdateConversation")

	if m.ErrUpdateConversation != nil {
		return m.ErrUpdateConversation
	}
	c, ok := m.conversations[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Language != nil {
		c.Language = *patch.Language
	}
	return nil
}

// TouchConversation sets the last-update timestamp of a conversation.
func (m *MockStore) TouchConversation(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("TouchConversation")

	c, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = at
	return nil
}

// SaveMessage appends a message to its conversation.
func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("SaveMessage")

	if _, ok := m.conversations[msg.ConversationID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.messages {
		for _, stored := range existing {
			if stored.ID == msg.ID {
				return ErrDuplicateMessage
			}
		}
	}
	copied := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &copied)
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (m *MockStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListMessages")

	if m.ErrListMessages != nil {
		return nil, m.ErrListMessages
	}

	stored := m.messages[conversationID]
	msgs := make([]*Message, len(stored))
	for i, msg := range stored {
		copied := *msg
		msgs[i] = &copied
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// SaveUsage records token usage, ignoring repeats for the same message.
func (m *MockStore) SaveUsage(ctx context.Context, usage *TokenUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("SaveUsage")

	if _, ok := m.conversations[usage.ConversationID]; !ok {
		return ErrNotFound
	}
	for _, u := range m.usage {
		if u.MessageID == usage.MessageID {
			return nil
		}
	}
	copied := *usage
	m.usage = append(m.usage, &copied)
	return nil
}

// ListConversationUsage returns the usage records of a conversation, oldest first.
func (m *MockStore) ListConversationUsage(ctx context.Context, conversationID string) ([]*TokenUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListConversationUsage")

	var usages []*TokenUsage
	for _, u := range m.usage {
		if u.ConversationID == conversationID {
			copied := *u
			usages = append(usages, &copied)
		}
	}
	sort.SliceStable(usages, func(i, j int) bool {
		return usages[i].CreatedAt.Before(usages[j].CreatedAt)
	})
	return usages, nil
}

// GetUsageStats aggregates the usage records matching filter.
func (m *MockStore) GetUsageStats(ctx context.Context, filter UsageFilter) (*UsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetUsageStats")

	var stats UsageStats
	for _, u := range m.usage {
		if !filter.matches(u) {
			continue
		}
		stats.TotalInput += int64(u.InputTokens)
		stats.TotalOutput += int64(u.OutputTokens)
		stats.RequestCount++
	}
	stats.TotalTokens = stats.TotalInput + stats.TotalOutput
	return &stats, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)
