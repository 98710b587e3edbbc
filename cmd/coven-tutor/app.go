// ABOUTME: Wires config, store, model provider, and invocation service into a Session
// ABOUTME: Shared by the chat and export subcommands

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/auth"
	"github.com/2389/coven-tutor/internal/config"
	"github.com/2389/coven-tutor/internal/conversation"
	"github.com/2389/coven-tutor/internal/dedupe"
	"github.com/2389/coven-tutor/internal/invocation"
	"github.com/2389/coven-tutor/internal/llm"
	"github.com/2389/coven-tutor/internal/store"
)

// dedupeMaxSize bounds remembered draft mints.
const dedupeMaxSize = 10000

type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	provider llm.Provider
	minted   *dedupe.Cache
	logger   *slog.Logger
	identity auth.SessionContext
	session  *conversation.Session
}

func newApp(ctx context.Context) (*app, error) {
	cfg, s, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Logging)

	token := getToken()
	if token == "" {
		s.Close()
		return nil, fmt.Errorf("no session token: set COVEN_TOKEN or run coven-tutor token")
	}
	identity, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).ParseSessionContext(token)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	provider, err := llm.New(ctx, cfg.Model)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating model provider: %w", err)
	}

	minted := dedupe.New(cfg.Session.DedupeTTL, dedupeMaxSize)
	a := &app{
		cfg:      cfg,
		store:    s,
		provider: provider,
		minted:   minted,
		logger:   logger,
		identity: identity,
	}
	a.session = conversation.NewSession(conversation.Deps{
		Store:           s,
		Invoker:         invocation.New(s, provider, minted, logger),
		Navigator:       printNavigator{},
		Notifier:        printNotifier{},
		Logger:          logger,
		DefaultLanguage: cfg.Session.Language(),
		DirectoryLimit:  cfg.Session.DirectoryLimit,
	})

	logger.Debug("session ready",
		"user_id", identity.UserID,
		"tier", identity.Tier.String(),
		"provider", provider.Name())
	return a, nil
}

func (a *app) Close() {
	a.session.Close()
	a.minted.Close()
	if err := a.provider.Close(); err != nil {
		a.logger.Warn("closing provider", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

// printNavigator shows route changes so the address can be reused with --route.
type printNavigator struct{}

func (printNavigator) Navigate(r conversation.Route) {
	color.New(color.FgHiBlack).Printf("  → %s\n", r.Path())
}

type printNotifier struct{}

func (printNotifier) Notify(n conversation.Notification) {
	c := color.New(color.FgCyan)
	switch n.Level {
	case conversation.LevelWarning:
		c = color.New(color.FgYellow)
	case conversation.LevelError:
		c = color.New(color.FgRed)
	}
	c.Printf("  [%s] %s\n", n.Level, n.Message)
}
