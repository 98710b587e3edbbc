// ABOUTME: Tests for Markdown and HTML transcript rendering
// ABOUTME: Checks section order, failed replies, drafts, and goldmark output

package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-tutor/internal/conversation"
	"github.com/2389/coven-tutor/internal/store"
)

var started = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func TestMarkdown_ActiveConversation(t *testing.T) {
	conv := &store.Conversation{ID: "c-1", Title: "Frações", Language: store.LanguagePortuguese, CreatedAt: started}
	agent := &store.Agent{ID: "agent-1", Name: "Professora Ana"}
	ref := conversation.RefTo("c-1")

	md := Markdown(conv, agent, []conversation.Message{
		conversation.UserMessage{Conversation: ref, Text: "O que é 1/2 + 1/4?", CreatedAt: started.Add(time.Minute)},
		conversation.AgentMessage{Conversation: ref, Text: "É **3/4**.", CreatedAt: started.Add(2 * time.Minute)},
	})

	assert.True(t, strings.HasPrefix(md, "# Frações\n"))
	assert.Contains(t, md, "_Agent: Professora Ana · Language: Português · Started: 2026-05-04 12:00 UTC_")
	assert.Contains(t, md, "**You** (12:01):\n\nO que é 1/2 + 1/4?\n")
	assert.Contains(t, md, "**Professora Ana** (12:02):\n\nÉ **3/4**.\n")
	assert.Less(t, strings.Index(md, "**You**"), strings.Index(md, "**Professora Ana** ("))
}

func TestMarkdown_DraftWithIntroAndFailure(t *testing.T) {
	md := Markdown(nil, &store.Agent{Name: "Tutor"}, []conversation.Message{
		conversation.IntroMessage{Text: "Sou seu tutor.\nPergunte à vontade."},
		conversation.UserMessage{Conversation: conversation.DraftRef, Text: "oi", CreatedAt: started},
		conversation.AgentMessage{Conversation: conversation.DraftRef, Text: "Desculpe", Failed: true, CreatedAt: started},
	})

	assert.True(t, strings.HasPrefix(md, "# Nova conversa\n"))
	assert.Contains(t, md, "_Agent: Tutor_")
	assert.Contains(t, md, "> Sou seu tutor.\n> Pergunte à vontade.\n")
	assert.Contains(t, md, "**Tutor** _(not delivered)_:")
}

func TestHTML(t *testing.T) {
	conv := &store.Conversation{Title: "Álgebra", Language: store.LanguageEnglish, CreatedAt: started}
	md := Markdown(conv, nil, []conversation.Message{
		conversation.AgentMessage{Text: "Use *x* = 2", CreatedAt: started},
	})

	html, err := HTML(md)
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "<h1>Álgebra</h1>")
	assert.Contains(t, out, "<strong>Tutor</strong>")
	assert.Contains(t, out, "<em>x</em>")
}
