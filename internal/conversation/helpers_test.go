// ABOUTME: Shared fakes for session tests: scripted invoker, recording navigator and notifier
// ABOUTME: Seeds a MockStore with agents, conversations, and messages

package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/coven-tutor/internal/auth"
	"github.com/2389/coven-tutor/internal/invocation"
	"github.com/2389/coven-tutor/internal/store"
)

const (
	testUser      = "user-1"
	testAgent     = "agent-1"
	testPrompt    = "Você é um tutor paciente de matemática."
	plainAgent    = "agent-plain"
	inactiveAgent = "agent-retired"
)

var testBase = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func student() auth.SessionContext {
	return auth.NewSessionContext(testUser, auth.TierStudent)
}

// fakeInvoker records requests and answers with respond. When gate is set,
// Invoke blocks until the gate is closed or ctx ends.
type fakeInvoker struct {
	mu       sync.Mutex
	requests []invocation.Request
	respond  func(req invocation.Request) (*invocation.Result, error)
	gate     chan struct{}
	started  chan invocation.Request
}

func (f *fakeInvoker) Invoke(ctx context.Context, req invocation.Request) (*invocation.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond, gate, started := f.respond, f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- req
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return respond(req)
}

func (f *fakeInvoker) calls() []invocation.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invocation.Request(nil), f.requests...)
}

// hold makes subsequent invocations block until release is called.
func (f *fakeInvoker) hold() (started <-chan invocation.Request, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	ch := make(chan invocation.Request, 8)
	f.gate = gate
	f.started = ch
	var once sync.Once
	return ch, func() { once.Do(func() { close(gate) }) }
}

func (f *fakeInvoker) setRespond(respond func(req invocation.Request) (*invocation.Result, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

// mintingResponder behaves like the invocation service: a request without a
// conversation creates one in st, and every request gets a numbered reply.
func mintingResponder(st *store.MockStore, convID, title string) func(invocation.Request) (*invocation.Result, error) {
	var mu sync.Mutex
	n := 0
	return func(req invocation.Request) (*invocation.Result, error) {
		mu.Lock()
		n++
		reply := fmt.Sprintf("reply %d", n)
		mu.Unlock()

		if req.ConversationID != "" {
			return &invocation.Result{ReplyText: reply}, nil
		}
		err := st.CreateConversation(context.Background(), &store.Conversation{
			ID: convID, UserID: req.UserID, AgentID: req.AgentID, Title: title,
			Language: req.Language, CreatedAt: testBase, UpdatedAt: testBase.Add(time.Hour),
		})
		if err != nil {
			return nil, err
		}
		return &invocation.Result{ReplyText: reply, NewConversationID: convID, NewConversationTitle: title}, nil
	}
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []Route
}

func (n *recordingNavigator) Navigate(r Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *recordingNavigator) all() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.routes...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (n *recordingNotifier) Notify(note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notes...)
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type harness struct {
	store   *store.MockStore
	invoker *fakeInvoker
	nav     *recordingNavigator
	notes   *recordingNotifier
	session *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st := store.NewMockStore()
	ctx := context.Background()
	for _, a := range []*store.Agent{
		{ID: testAgent, Provider: "echo", Name: "Tutor", Variant: "gemini-2.0-flash", SystemPrompt: testPrompt, Active: true, CreatedAt: testBase},
		{ID: plainAgent, Provider: "echo", Name: "Plain", Active: true, CreatedAt: testBase},
		{ID: inactiveAgent, Provider: "echo", Name: "Retired", SystemPrompt: "old", Active: false, CreatedAt: testBase},
	} {
		require.NoError(t, st.CreateAgent(ctx, a))
	}

	h := &harness{
		store:   st,
		invoker: &fakeInvoker{},
		nav:     &recordingNavigator{},
		notes:   &recordingNotifier{},
	}
	h.invoker.respond = mintingResponder(st, "c-9", "Saudação")
	h.session = NewSession(Deps{
		Store:     st,
		Invoker:   h.invoker,
		Navigator: h.nav,
		Notifier:  h.notes,
		Now:       (&clock{t: testBase.Add(24 * time.Hour)}).Now,
	})
	t.Cleanup(h.session.Close)
	return h
}

// seedConversation stores a conversation with alternating user/agent messages.
func (h *harness) seedConversation(t *testing.T, id, userID, agentID string, lang store.Language, texts ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.CreateConversation(ctx, &store.Conversation{
		ID: id, UserID: userID, AgentID: agentID, Title: "Título " + id,
		Language: lang, CreatedAt: testBase, UpdatedAt: testBase,
	}))
	for i, text := range texts {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAgent
		}
		require.NoError(t, h.store.SaveMessage(ctx, &store.Message{
			ID: fmt.Sprintf("%s-m%d", id, i), ConversationID: id, Role: role,
			Content: text, CreatedAt: testBase.Add(time.Duration(i) * time.Second),
		}))
	}
}

func bodies(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Kind()) + ":" + m.Body()
	}
	return out
}
