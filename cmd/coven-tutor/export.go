// ABOUTME: Writes the transcript of a conversation as Markdown or HTML
// ABOUTME: Used by the export subcommand and the chat /export command

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/conversation"
	"github.com/2389/coven-tutor/internal/transcript"
)

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	routePath := fs.String("route", "", "Conversation route, /tutor/AGENT/CONVERSATION (required)")
	out := fs.String("out", "", "Output file, stdout when empty")
	asHTML := fs.Bool("html", false, "Render HTML instead of Markdown")
	if err := fs.Parse(args); err != nil {
		return err
	}

	route, err := conversation.ParseRoute(*routePath)
	if err != nil {
		return err
	}
	if route.ConversationID == "" {
		return fmt.Errorf("--route must name a conversation")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Initialize(ctx, a.identity, route.AgentID, route.ConversationID); err != nil {
		return err
	}
	return exportState(a.session.State(), *out, *asHTML)
}

// exportState writes the transcript of st to path, or stdout when path is empty.
func exportState(st conversation.State, path string, asHTML bool) error {
	doc := []byte(transcript.Markdown(st.Conversation, st.Agent, st.Messages))
	if asHTML {
		html, err := transcript.HTML(string(doc))
		if err != nil {
			return err
		}
		doc = html
	}

	if path == "" {
		_, err := os.Stdout.Write(doc)
		return err
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	color.New(color.FgGreen).Printf("  ✓ Wrote %s\n", path)
	return nil
}
