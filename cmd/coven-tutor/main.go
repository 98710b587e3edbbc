// ABOUTME: Entry point for the coven-tutor command line
// ABOUTME: Dispatches subcommands for setup, agents, tokens, chat, and export

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/config"
	"github.com/2389/coven-tutor/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                  _         _
  ___ _____   _____ _ __         | |_ _   _| |_ ___  _ __
 / __/ _ \ \ / / _ \ '_ \ _____  | __| | | | __/ _ \| '__|
| (_| (_) \ V /  __/ | | |_____| | |_| |_| | || (_) | |
 \___\___/ \_/ \___|_| |_|        \__|\__,_|\__\___/|_|
`

// getConfigPath returns the path to the tutor config file.
// Priority: COVEN_TUTOR_CONFIG env var > XDG_CONFIG_HOME/coven/tutor.yaml > ~/.config/coven/tutor.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_TUTOR_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(getConfigDir(), "tutor.yaml")
}

func getConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "coven")
}

// getDataPath returns the path to the coven data directory.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "coven")
}

// getToken returns the JWT token from COVEN_TOKEN env var or the token file
// next to the config.
func getToken() string {
	if token := os.Getenv("COVEN_TOKEN"); token != "" {
		return token
	}
	data, err := os.ReadFile(filepath.Join(getConfigDir(), "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func usage() {
	fmt.Println("Usage: coven-tutor <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                         Create a config file and a starter agent")
	fmt.Println("  agents [list]                List configured agents")
	fmt.Println("  agents add --id ID --name N  Add an agent")
	fmt.Println("  token --user ID [--tier T]   Issue a session token")
	fmt.Println("  chat [--route PATH]          Talk to a tutor")
	fmt.Println("  export --route PATH          Write a conversation transcript")
	fmt.Println("  usage [--agent ID]           Show model token usage")
	fmt.Println("  version                      Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(ctx)
	case "agents":
		err = runAgents(ctx, args)
	case "token":
		err = runToken(args)
	case "chat":
		err = runChat(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "usage":
		err = runUsage(ctx, args)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	color.New(color.FgCyan).Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)
}

// loadConfig reads the config file and opens the store it names.
func loadConfig() (*config.Config, *store.SQLiteStore, error) {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, s, nil
}
