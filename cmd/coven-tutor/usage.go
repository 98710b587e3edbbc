// ABOUTME: Reports model token consumption recorded for agent replies
// ABOUTME: Filters by agent, user, and a trailing time window

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/store"
)

func runUsage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	agentID := fs.String("agent", "", "Only count replies from this agent")
	userID := fs.String("user", "", "Only count replies to this user")
	window := fs.Duration("since", 0, "Only count the trailing window, e.g. 24h")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, s, err := loadConfig()
	if err != nil {
		return err
	}
	defer s.Close()

	var filter store.UsageFilter
	if *agentID != "" {
		filter.AgentID = agentID
	}
	if *userID != "" {
		filter.UserID = userID
	}
	if *window > 0 {
		since := time.Now().Add(-*window)
		filter.Since = &since
	}

	stats, err := s.GetUsageStats(ctx, filter)
	if err != nil {
		return fmt.Errorf("loading usage: %w", err)
	}

	cyan := color.New(color.FgCyan)
	cyan.Println("  Token usage")
	cyan.Println("  -----------")
	fmt.Printf("  Replies:       %d\n", stats.RequestCount)
	fmt.Printf("  Input tokens:  %d\n", stats.TotalInput)
	fmt.Printf("  Output tokens: %d\n", stats.TotalOutput)
	fmt.Printf("  Total tokens:  %d\n", stats.TotalTokens)
	return nil
}
