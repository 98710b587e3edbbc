// ABOUTME: Issues session tokens signed with the configured JWT secret
// ABOUTME: The token carries the user ID and permission tier

package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/2389/coven-tutor/internal/auth"
	"github.com/2389/coven-tutor/internal/config"
)

// defaultTokenTTL is 30 days.
const defaultTokenTTL = 30 * 24 * time.Hour

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "User ID (required)")
	tierName := fs.String("tier", "student", "Tier: visitor, student, moderator, admin")
	ttl := fs.Duration("ttl", defaultTokenTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("--user is required")
	}

	tier, err := auth.ParseTier(*tierName)
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(*userID, tier, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Println(token)
	return nil
}
