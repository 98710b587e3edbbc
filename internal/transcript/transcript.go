// ABOUTME: Renders a tutor conversation timeline as Markdown or HTML
// ABOUTME: HTML conversion goes through goldmark

package transcript

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-tutor/internal/conversation"
	"github.com/2389/coven-tutor/internal/invocation"
	"github.com/2389/coven-tutor/internal/store"
)

const (
	dateLayout = "2006-01-02 15:04 UTC"
	timeLayout = "15:04"
)

// Markdown renders messages as a Markdown document. conv is nil for a draft.
func Markdown(conv *store.Conversation, agent *store.Agent, messages []conversation.Message) string {
	var b strings.Builder

	title := invocation.FallbackTitle
	if conv != nil && strings.TrimSpace(conv.Title) != "" {
		title = conv.Title
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	agentName := "Tutor"
	if agent != nil && agent.Name != "" {
		agentName = agent.Name
	}
	meta := []string{"Agent: " + agentName}
	if conv != nil {
		meta = append(meta,
			"Language: "+string(conv.Language),
			"Started: "+conv.CreatedAt.UTC().Format(dateLayout))
	}
	fmt.Fprintf(&b, "_%s_\n", strings.Join(meta, " · "))

	for _, m := range messages {
		b.WriteString("\n")
		switch m := m.(type) {
		case conversation.IntroMessage:
			b.WriteString(quote(m.Text))
		case conversation.UserMessage:
			fmt.Fprintf(&b, "**You** (%s):\n\n%s\n", m.CreatedAt.UTC().Format(timeLayout), strings.TrimSpace(m.Text))
		case conversation.AgentMessage:
			if m.Failed {
				fmt.Fprintf(&b, "**%s** _(not delivered)_:\n\n%s\n", agentName, strings.TrimSpace(m.Text))
				continue
			}
			fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n", agentName, m.CreatedAt.UTC().Format(timeLayout), strings.TrimSpace(m.Text))
		}
	}
	return b.String()
}

// HTML converts a Markdown transcript to an HTML fragment.
func HTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("converting transcript: %w", err)
	}
	return buf.Bytes(), nil
}

func quote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n") + "\n"
}
