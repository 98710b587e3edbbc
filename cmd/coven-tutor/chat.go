// ABOUTME: Line-oriented chat driver for a tutor Session
// ABOUTME: Renders published state snapshots and maps slash commands to session operations

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/conversation"
	"github.com/2389/coven-tutor/internal/store"
)

func runChat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	routePath := fs.String("route", "/tutor", "Route to open, e.g. /tutor/AGENT or /tutor/AGENT/CONVERSATION")
	if err := fs.Parse(args); err != nil {
		return err
	}
	route, err := conversation.ParseRoute(*routePath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if route.AgentID == "" {
		agentID, err := firstActiveAgent(ctx, a.store)
		if err != nil {
			return err
		}
		route.AgentID = agentID
	}

	printBanner()

	renderCtx, stopRender := context.WithCancel(ctx)
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		render(a.session.Subscribe(renderCtx))
	}()
	defer func() {
		stopRender()
		<-renderDone
	}()

	if err := a.session.Initialize(ctx, a.identity, route.AgentID, route.ConversationID); err != nil {
		return err
	}

	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	return chatLoop(ctx, a)
}

func firstActiveAgent(ctx context.Context, s store.Store) (string, error) {
	agents, err := s.ListAgents(ctx)
	if err != nil {
		return "", fmt.Errorf("listing agents: %w", err)
	}
	for _, agent := range agents {
		if agent.Active {
			return agent.ID, nil
		}
	}
	return "", fmt.Errorf("no active agents: run coven-tutor agents add")
}

// readLines scans r on a goroutine until r ends or ctx is done. lines is
// closed when the goroutine exits; after a read error or end of input the
// cause is sent on the error channel.
func readLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()
	return lines, errCh
}

func chatLoop(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, errCh := readLines(ctx, os.Stdin)

	for {
		var (
			input string
			ok    bool
		)
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input, ok = <-lines:
			if !ok {
				// The reader is done; errCh says why
				lines = nil
				continue
			}
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !strings.HasPrefix(input, "/") {
			// Failures are already shown in the timeline and as a notification
			if err := a.session.SendMessage(ctx, input); err != nil {
				a.logger.Debug("send failed", "error", err)
			}
			continue
		}

		quit, err := runCommand(ctx, a, input)
		if err != nil {
			color.New(color.FgRed).Printf("  [error] %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// runCommand executes a slash command. It reports whether the chat should end.
func runCommand(ctx context.Context, a *app, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help":
		printHelp()
	case "/new":
		return false, a.session.StartNewChat(ctx)
	case "/lang":
		if arg == "" {
			fmt.Printf("  Language: %s (options: %s)\n", a.session.State().Language, languageList())
			return false, nil
		}
		return false, a.session.SwitchLanguage(ctx, store.Language(arg))
	case "/rename":
		return false, a.session.RenameConversation(ctx, arg)
	case "/list":
		printDirectory(a.session.State())
	case "/open":
		if arg == "" {
			return false, fmt.Errorf("usage: /open CONVERSATION_ID")
		}
		return false, a.session.SelectConversation(ctx, arg)
	case "/export":
		return false, exportState(a.session.State(), arg, strings.HasSuffix(arg, ".html"))
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /new             Start a new conversation")
	fmt.Println("  /lang [NAME]     Show or change the reply language")
	fmt.Println("  /rename TITLE    Rename the current conversation")
	fmt.Println("  /list            List your conversations with this tutor")
	fmt.Println("  /open ID         Open a conversation")
	fmt.Println("  /export [FILE]   Write the transcript (.md or .html)")
	fmt.Println("  /quit            Leave")
}

func languageList() string {
	names := make([]string, 0, len(store.Languages()))
	for _, l := range store.Languages() {
		names = append(names, string(l))
	}
	return strings.Join(names, ", ")
}

func printDirectory(st conversation.State) {
	if len(st.Conversations) == 0 {
		fmt.Println("  No conversations yet.")
		return
	}
	current := st.ConversationID()
	for _, c := range st.Conversations {
		marker := " "
		if c.ID == current {
			marker = "*"
		}
		fmt.Printf("  %s %s  %s  %s\n", marker, c.ID, c.Title, color.HiBlackString(c.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
}

// render prints messages as snapshots arrive. It restarts from the top when
// the timeline is replaced by another conversation.
func render(states <-chan conversation.State) {
	shown := 0
	lastConv := ""
	wasSending := false
	tutor := color.New(color.FgCyan, color.Bold)
	failed := color.New(color.FgRed)
	faint := color.New(color.FgHiBlack)

	for st := range states {
		convID := st.ConversationID()
		replaced := st.Phase == conversation.PhaseLoading ||
			len(st.Messages) < shown ||
			(lastConv != "" && convID != lastConv)
		if replaced {
			shown = 0
		}
		lastConv = convID

		if shown == 0 && len(st.Messages) > 0 {
			title := "New conversation"
			if st.Conversation != nil {
				title = st.Conversation.Title
			}
			faint.Printf("── %s (%s) ──\n", title, st.Language)
		}

		agentName := "Tutor"
		if st.Agent != nil {
			agentName = st.Agent.Name
		}
		for _, m := range st.Messages[shown:] {
			switch m := m.(type) {
			case conversation.IntroMessage:
				faint.Println(m.Text)
			case conversation.UserMessage:
				// Typed by the user; only replayed when loading history
				if replaced || shown == 0 {
					fmt.Printf("you: %s\n", m.Text)
				}
			case conversation.AgentMessage:
				if m.Failed {
					failed.Printf("%s: %s\n", agentName, m.Text)
				} else {
					tutor.Printf("%s: ", agentName)
					fmt.Println(m.Text)
				}
			}
		}
		shown = len(st.Messages)

		if st.Sending && !wasSending {
			faint.Println("…")
		}
		wasSending = st.Sending
	}
}
