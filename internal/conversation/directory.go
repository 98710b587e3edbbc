// ABOUTME: Conversation Directory: cached list of a user's conversations with one agent
// ABOUTME: Load fails open, Prepend integrates new conversations, Refresh fixes ordering

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/coven-tutor/internal/store"
)

// DirectoryStore defines what the directory needs from storage
type DirectoryStore interface {
	ListConversations(ctx context.Context, userID, agentID string, limit int) ([]*store.Conversation, error)
}

// Directory caches the conversations of one (user, agent) pair, most
// recently updated first. It is safe for concurrent use.
type Directory struct {
	store  DirectoryStore
	limit  int
	logger *slog.Logger

	mu            sync.RWMutex
	userID        string
	agentID       string
	epoch         uint64 // bumped by every Load; stale fetches are dropped
	conversations []store.Conversation
	prepended     []store.Conversation // since the last applied fetch
}

// NewDirectory creates an empty directory. limit bounds how many
// conversations are fetched; zero uses the store default.
func NewDirectory(s DirectoryStore, limit int, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		store:  s,
		limit:  limit,
		logger: logger.With("component", "directory"),
	}
}

// Load fetches the conversations of userID with agentID and replaces the
// cache. On a store error the cache is emptied and the returned error wraps
// ErrDirectoryUnavailable; the empty list is still usable.
func (d *Directory) Load(ctx context.Context, userID, agentID string) ([]store.Conversation, error) {
	return d.fill(ctx, d.begin(userID, agentID))
}

// begin switches the directory to a new pair and returns its epoch.
func (d *Directory) begin(userID, agentID string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch++
	d.userID = userID
	d.agentID = agentID
	d.conversations = nil
	d.prepended = nil
	return d.epoch
}

// fill fetches the pair selected by begin. Results for an outdated epoch
// are dropped.
func (d *Directory) fill(ctx context.Context, epoch uint64) ([]store.Conversation, error) {
	d.mu.RLock()
	current, userID, agentID := d.epoch, d.userID, d.agentID
	d.mu.RUnlock()
	if current != epoch {
		return d.List(), nil
	}

	convs, err := d.fetch(ctx, userID, agentID)

	d.mu.Lock()
	defer d.mu.Unlock()
	if epoch != d.epoch {
		return d.listLocked(), nil
	}
	if err != nil {
		d.logger.Warn("failed to load conversations", "user_id", userID, "agent_id", agentID, "error", err)
		return d.listLocked(), fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	d.applyLocked(convs)
	return d.listLocked(), nil
}

// Refresh re-fetches the pair last loaded. On error the cached list is kept.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.RLock()
	epoch, userID, agentID := d.epoch, d.userID, d.agentID
	d.mu.RUnlock()

	if epoch == 0 {
		return nil
	}

	convs, err := d.fetch(ctx, userID, agentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if epoch != d.epoch {
		d.logger.Debug("discarding refresh for previous pair", "user_id", userID, "agent_id", agentID)
		return nil
	}
	d.applyLocked(convs)
	return nil
}

// Prepend puts conv at the head of the list. A conversation already listed
// is moved rather than duplicated.
func (d *Directory) Prepend(conv store.Conversation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := make([]store.Conversation, 0, len(d.conversations)+1)
	list = append(list, conv)
	for _, c := range d.conversations {
		if c.ID != conv.ID {
			list = append(list, c)
		}
	}
	d.conversations = list
	d.prepended = append(d.prepended, conv)
}

// Apply updates the cached entry for id with patch. It reports whether the
// entry was present.
func (d *Directory) Apply(id string, patch store.ConversationPatch) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.conversations {
		if d.conversations[i].ID != id {
			continue
		}
		if patch.Title != nil {
			d.conversations[i].Title = *patch.Title
		}
		if patch.Language != nil {
			d.conversations[i].Language = *patch.Language
		}
		return true
	}
	return false
}

// List returns a copy of the cached conversations.
func (d *Directory) List() []store.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.listLocked()
}

func (d *Directory) listLocked() []store.Conversation {
	list := make([]store.Conversation, len(d.conversations))
	copy(list, d.conversations)
	return list
}

func (d *Directory) fetch(ctx context.Context, userID, agentID string) ([]store.Conversation, error) {
	convs, err := d.store.ListConversations(ctx, userID, agentID, d.limit)
	if err != nil {
		return nil, err
	}
	list := make([]store.Conversation, 0, len(convs))
	for _, c := range convs {
		list = append(list, *c)
	}
	return list, nil
}

// applyLocked replaces the cache with fetched, keeping conversations
// prepended while the fetch was in flight that it does not include yet.
func (d *Directory) applyLocked(fetched []store.Conversation) {
	seen := make(map[string]bool, len(fetched))
	for _, c := range fetched {
		seen[c.ID] = true
	}
	var list []store.Conversation
	for i := len(d.prepended) - 1; i >= 0; i-- {
		c := d.prepended[i]
		if !seen[c.ID] {
			seen[c.ID] = true
			list = append(list, c)
		}
	}
	d.conversations = append(list, fetched...)
	d.prepended = nil
}
