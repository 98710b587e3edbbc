// ABOUTME: Session State Machine for one tutor screen: load, send, rename, switch language
// ABOUTME: Stale async completions are discarded by comparing a generation counter

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-tutor/internal/auth"
	"github.com/2389/coven-tutor/internal/invocation"
	"github.com/2389/coven-tutor/internal/store"
)

// refreshTimeout bounds background directory refreshes.
const refreshTimeout = 10 * time.Second

// SessionStore defines what a session needs from storage
type SessionStore interface {
	DirectoryStore
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
	GetConversation(ctx context.Context, id, userID, agentID string) (*store.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
	UpdateConversation(ctx context.Context, id, userID string, patch store.ConversationPatch) error
}

// Invoker answers one user turn. *invocation.Service implements it.
type Invoker interface {
	Invoke(ctx context.Context, req invocation.Request) (*invocation.Result, error)
}

// Deps holds the collaborators of a Session.
type Deps struct {
	Store     SessionStore
	Invoker   Invoker
	Navigator Navigator // optional
	Notifier  Notifier  // optional
	Logger    *slog.Logger

	// DefaultLanguage is used for drafts. Defaults to store.DefaultLanguage.
	DefaultLanguage store.Language
	// DirectoryLimit bounds the conversation list; zero uses the store default.
	DirectoryLimit int
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

// Session owns the state of one tutor screen visit.
//
// The mutex is never held across store or invocation calls. Initialize and
// StartNewChat bump gen; results of calls started under an older gen are
// dropped.
type Session struct {
	store       SessionStore
	invoker     Invoker
	navigator   Navigator
	notifier    Notifier
	logger      *slog.Logger
	dir         *Directory
	broadcaster *StateBroadcaster
	defaultLang store.Language
	now         func() time.Time

	mu         sync.Mutex
	gen        uint64
	identity   auth.SessionContext
	agent      *store.Agent
	conv       *store.Conversation
	loaded     bool // agent loaded, draft or active
	sending    bool
	messages   []Message
	language   store.Language
	draftKey   LocalID
	editing    bool
	titleDraft string

	wg sync.WaitGroup
}

// NewSession creates a session in the Loading phase.
func NewSession(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lang := deps.DefaultLanguage
	if !lang.Valid() {
		lang = store.DefaultLanguage
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	var navigator Navigator = nopNavigator{}
	if deps.Navigator != nil {
		navigator = deps.Navigator
	}
	var notifier Notifier = nopNotifier{}
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}

	return &Session{
		store:       deps.Store,
		invoker:     deps.Invoker,
		navigator:   navigator,
		notifier:    notifier,
		logger:      logger.With("component", "session"),
		dir:         NewDirectory(deps.Store, deps.DirectoryLimit, logger),
		broadcaster: NewStateBroadcaster(logger),
		defaultLang: lang,
		now:         now,
		language:    lang,
		messages:    []Message{},
	}
}

// Initialize loads agentID, and conversationID when given, for the user in
// sc. A missing, inactive, foreign, or forbidden target navigates to
// FallbackRoute and returns ErrNotFound or ErrAccessDenied; the session then
// stays Loading. Directory failures only produce a notification.
func (s *Session) Initialize(ctx context.Context, sc auth.SessionContext, agentID, conversationID string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.identity = sc
	s.resetLocked()
	epoch := s.dir.begin(sc.UserID, agentID)
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Debug("initializing session",
		"user_id", sc.UserID,
		"agent_id", agentID,
		"conversation_id", conversationID)

	if !sc.CanUseTutor() {
		return s.failLoad(gen, fmt.Errorf("user %q (tier %s) cannot use the tutor: %w", sc.UserID, sc.Tier, ErrAccessDenied))
	}

	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return s.failLoad(gen, fmt.Errorf("loading agent %q: %w", agentID, err))
	}
	if !agent.Active {
		return s.failLoad(gen, fmt.Errorf("agent %q is inactive: %w", agentID, ErrNotFound))
	}

	var (
		conv     *store.Conversation
		timeline []Message
	)
	if conversationID != "" {
		conv, err = s.store.GetConversation(ctx, conversationID, sc.UserID, agentID)
		if err != nil {
			return s.failLoad(gen, fmt.Errorf("loading conversation %q: %w", conversationID, err))
		}
		msgs, err := s.store.ListMessages(ctx, conv.ID)
		if err != nil {
			return s.failLoad(gen, fmt.Errorf("loading messages of %q: %w", conv.ID, err))
		}
		timeline = fromStored(msgs, conv.Language)
	} else {
		timeline = introFor(agent)
	}

	_, dirErr := s.dir.fill(ctx, epoch)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.agent = agent
	s.conv = conv
	s.messages = timeline
	s.loaded = true
	if conv != nil {
		s.language = conv.Language
	} else {
		s.language = s.defaultLang
		s.draftKey = NewLocalID()
	}
	s.publishLocked()
	s.mu.Unlock()

	if dirErr != nil {
		s.notifier.Notify(Notification{
			Level:   LevelWarning,
			Message: "Could not load your conversations.",
			Err:     dirErr,
		})
	}
	return nil
}

// failLoad finishes a failed Initialize. NotFound and AccessDenied redirect
// to the fallback route; other errors are surfaced as a notification.
func (s *Session) failLoad(gen uint64, err error) error {
	s.mu.Lock()
	superseded := s.gen != gen
	s.mu.Unlock()
	if superseded {
		return ErrSuperseded
	}

	s.logger.Warn("session load failed", "error", err)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied) {
		s.navigator.Navigate(FallbackRoute)
		return err
	}
	s.notifier.Notify(Notification{Level: LevelError, Message: "Could not open the conversation.", Err: err})
	return err
}

// resetLocked discards everything tied to the previous identity.
func (s *Session) resetLocked() {
	s.agent = nil
	s.conv = nil
	s.loaded = false
	s.sending = false
	s.messages = []Message{}
	s.language = s.defaultLang
	s.draftKey = ""
	s.editing = false
	s.titleDraft = ""
}

// SendMessage appends text as an optimistic user message and asks the agent
// for a reply. It is a no-op for blank text, before an agent is loaded, or
// while another send is in flight. An invocation failure appends one failed
// agent message and returns an error wrapping ErrInvocationFailed.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if !s.loaded || s.agent == nil || s.sending {
		s.mu.Unlock()
		return nil
	}

	gen := s.gen
	localID := NewLocalID()
	ref := DraftRef
	convID := ""
	if s.conv != nil {
		convID = s.conv.ID
		ref = RefTo(DurableID(convID))
	}
	msg := UserMessage{
		ID:           LocalMessageID(localID),
		Conversation: ref,
		Text:         text,
		CreatedAt:    s.now(),
	}
	pending := pendingSend{
		message:  msg,
		current:  copyConversation(s.conv),
		userID:   s.identity.UserID,
		agentID:  s.agent.ID,
		language: s.language,
	}
	req := invocation.Request{
		RequestID:      string(localID),
		UserID:         s.identity.UserID,
		AgentID:        s.agent.ID,
		ConversationID: convID,
		DraftKey:       string(s.draftKey),
		UserText:       text,
		SystemPrompt:   s.agent.SystemPrompt,
		Model:          s.agent.Variant,
		Language:       s.language,
		History:        historyTurns(s.messages),
	}
	index := len(s.messages)
	s.messages = append(s.messages, msg)
	s.sending = true
	s.publishLocked()
	s.mu.Unlock()

	result, err := s.invoker.Invoke(ctx, req)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale send completion", "request_id", req.RequestID)
		return ErrSuperseded
	}

	var r reconciliation
	if err == nil {
		r, err = reconcile(pending, result, s.now())
	}
	if err != nil {
		s.messages = append(s.messages, AgentMessage{
			ID:           LocalMessageID(NewLocalID()),
			Conversation: s.messages[index].(UserMessage).Conversation,
			Text:         failureText(s.language),
			Failed:       true,
			CreatedAt:    s.now(),
		})
		s.sending = false
		s.publishLocked()
		s.mu.Unlock()

		s.logger.Warn("send failed", "request_id", req.RequestID, "error", err)
		s.notifier.Notify(Notification{Level: LevelError, Message: "The tutor could not answer.", Err: err})
		return fmt.Errorf("%w: %w", ErrInvocationFailed, err)
	}

	if r.created != nil {
		s.conv = r.created
		s.draftKey = ""
		s.dir.Prepend(*r.created)
	}
	sent := s.messages[index].(UserMessage)
	sent.Conversation = r.userRef
	s.messages[index] = sent
	s.messages = append(s.messages, r.reply)
	s.sending = false
	s.publishLocked()
	s.mu.Unlock()

	if r.created != nil {
		s.logger.Info("conversation started",
			"conversation_id", r.created.ID,
			"agent_id", r.created.AgentID)
		s.navigator.Navigate(Route{AgentID: r.created.AgentID, ConversationID: r.created.ID})
	}

	s.refreshDirectory(ctx, gen)
	return nil
}

// SwitchLanguage persists lang as the conversation's language. It is a no-op
// while drafting or when lang is already selected. On a store failure the
// previous language stays and the error wraps ErrPersistence.
func (s *Session) SwitchLanguage(ctx context.Context, lang store.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}

	s.mu.Lock()
	if s.conv == nil || s.language == lang {
		s.mu.Unlock()
		return nil
	}
	gen, convID, userID := s.gen, s.conv.ID, s.identity.UserID
	s.mu.Unlock()

	patch := store.ConversationPatch{Language: &lang}
	if err := s.store.UpdateConversation(ctx, convID, userID, patch); err != nil {
		return s.failPersist(gen, "Could not change the language.", fmt.Errorf("switching language: %w", err))
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.language = lang
	updated := *s.conv
	updated.Language = lang
	s.conv = &updated
	s.dir.Apply(convID, patch)
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

// RenameConversation persists title. It is a no-op while drafting or for a
// blank title. On a store failure the previous title stays and the error
// wraps ErrPersistence.
func (s *Session) RenameConversation(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	s.mu.Lock()
	if s.conv == nil {
		s.mu.Unlock()
		return nil
	}
	gen, convID, userID := s.gen, s.conv.ID, s.identity.UserID
	s.mu.Unlock()

	patch := store.ConversationPatch{Title: &title}
	if err := s.store.UpdateConversation(ctx, convID, userID, patch); err != nil {
		return s.failPersist(gen, "Could not rename the conversation.", fmt.Errorf("renaming conversation: %w", err))
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	updated := *s.conv
	updated.Title = title
	s.conv = &updated
	s.dir.Apply(convID, patch)
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *Session) failPersist(gen uint64, message string, err error) error {
	s.mu.Lock()
	superseded := s.gen != gen
	if !superseded {
		// Subscribers re-render the unchanged value
		s.publishLocked()
	}
	s.mu.Unlock()
	if superseded {
		return ErrSuperseded
	}

	s.logger.Warn("persisting conversation change failed", "error", err)
	s.notifier.Notify(Notification{Level: LevelError, Message: message, Err: err})
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// BeginTitleEdit starts editing the title of the active conversation.
func (s *Session) BeginTitleEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return
	}
	s.editing = true
	s.titleDraft = s.conv.Title
	s.publishLocked()
}

// SetTitleDraft replaces the text being edited.
func (s *Session) SetTitleDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editing {
		return
	}
	s.titleDraft = text
	s.publishLocked()
}

// CancelTitleEdit leaves edit mode without saving.
func (s *Session) CancelTitleEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editing {
		return
	}
	s.editing = false
	s.titleDraft = ""
	s.publishLocked()
}

// CommitTitleEdit leaves edit mode and renames the conversation to the draft.
func (s *Session) CommitTitleEdit(ctx context.Context) error {
	s.mu.Lock()
	if !s.editing {
		s.mu.Unlock()
		return nil
	}
	draft := s.titleDraft
	s.editing = false
	s.titleDraft = ""
	s.publishLocked()
	s.mu.Unlock()

	return s.RenameConversation(ctx, draft)
}

// StartNewChat discards the current conversation and opens a fresh draft for
// the same agent in the default language.
func (s *Session) StartNewChat(ctx context.Context) error {
	s.mu.Lock()
	if s.agent == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	s.gen++
	gen := s.gen
	agent := s.agent
	s.resetLocked()
	s.agent = agent
	s.loaded = true
	s.messages = introFor(agent)
	s.draftKey = NewLocalID()
	s.publishLocked()
	s.mu.Unlock()

	s.navigator.Navigate(Route{AgentID: agent.ID})
	s.refreshDirectory(ctx, gen)
	return nil
}

// SelectConversation re-initializes the session on conversationID for the
// current user and agent.
func (s *Session) SelectConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if s.agent == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	sc, agentID := s.identity, s.agent.ID
	s.mu.Unlock()

	if err := s.Initialize(ctx, sc, agentID, conversationID); err != nil {
		return err
	}
	s.navigator.Navigate(Route{AgentID: agentID, ConversationID: conversationID})
	return nil
}

// refreshDirectory re-fetches the directory in the background.
func (s *Session) refreshDirectory(ctx context.Context, gen uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		if err := s.dir.Refresh(ctx); err != nil {
			s.logger.Warn("directory refresh failed", "error", err)
			return
		}

		s.mu.Lock()
		if s.gen == gen {
			s.publishLocked()
		}
		s.mu.Unlock()
	}()
}

// Wait blocks until background directory refreshes have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close waits for background work and closes all subscriptions.
func (s *Session) Close() {
	s.Wait()
	s.broadcaster.Close()
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots published after each transition.
// The subscription ends when ctx is cancelled.
func (s *Session) Subscribe(ctx context.Context) <-chan State {
	ch, _ := s.broadcaster.Subscribe(ctx)
	return ch
}

// Directory exposes the session's conversation directory.
func (s *Session) Directory() *Directory {
	return s.dir
}

func (s *Session) publishLocked() {
	s.broadcaster.Publish(s.snapshotLocked())
}

func (s *Session) snapshotLocked() State {
	st := State{
		Agent:         copyAgent(s.agent),
		Conversation:  copyConversation(s.conv),
		Messages:      append([]Message(nil), s.messages...),
		Conversations: s.dir.List(),
		Language:      s.language,
		Sending:       s.sending,
		EditingTitle:  s.editing,
		TitleDraft:    s.titleDraft,
	}
	switch {
	case !s.loaded:
		st.Phase = PhaseLoading
	case s.sending:
		st.Phase = PhaseSending
	case s.conv == nil:
		st.Phase = PhaseDraft
	default:
		st.Phase = PhaseActive
	}
	if st.Messages == nil {
		st.Messages = []Message{}
	}
	return st
}

func copyAgent(a *store.Agent) *store.Agent {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func copyConversation(conv *store.Conversation) *store.Conversation {
	if conv == nil {
		return nil
	}
	c := *conv
	return &c
}
