// ABOUTME: Agent management subcommands: list configured agents and add new ones
// ABOUTME: Agents are stored in the tutor database

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/store"
)

func runAgents(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		return listAgents(ctx)
	}
	if args[0] == "add" {
		return addAgent(ctx, args[1:])
	}
	return fmt.Errorf("unknown agents command: %s", args[0])
}

func listAgents(ctx context.Context) error {
	_, s, err := loadConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	agents, err := s.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("listing agents: %w", err)
	}
	if len(agents) == 0 {
		fmt.Println("No agents configured. Run: coven-tutor agents add --id ID --name NAME")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL\tSTATUS")
	for _, a := range agents {
		status := color.GreenString("active")
		if !a.Active {
			status = color.HiBlackString("inactive")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Provider, a.Variant, status)
	}
	return w.Flush()
}

func addAgent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agents add", flag.ContinueOnError)
	id := fs.String("id", "", "Agent ID (required)")
	name := fs.String("name", "", "Display name (required)")
	provider := fs.String("provider", "echo", "Provider name")
	variant := fs.String("model", "", "Model name, empty for the provider default")
	systemPrompt := fs.String("prompt", "", "System prompt, shown as the draft intro")
	avatar := fs.String("avatar", "", "Avatar URL")
	inactive := fs.Bool("inactive", false, "Create the agent disabled")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *name == "" {
		return fmt.Errorf("--id and --name are required")
	}

	_, s, err := loadConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	err = s.CreateAgent(ctx, &store.Agent{
		ID:           *id,
		Provider:     *provider,
		Name:         *name,
		Variant:      *variant,
		SystemPrompt: *systemPrompt,
		AvatarURL:    *avatar,
		Active:       !*inactive,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	color.New(color.FgGreen).Printf("  ✓ Created agent %s (%s)\n", *id, *name)
	return nil
}
