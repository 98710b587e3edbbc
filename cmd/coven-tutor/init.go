// ABOUTME: Interactive first-time setup: writes the config file and seeds a starter agent
// ABOUTME: Generates a random JWT secret so tokens can be issued immediately

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-tutor/internal/config"
	"github.com/2389/coven-tutor/internal/store"
)

const starterPrompt = "Você é um tutor paciente. Explique passo a passo e faça perguntas para verificar o entendimento."

func runInit(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)
	green := color.New(color.FgGreen)

	printBanner()
	fmt.Println("coven-tutor configuration setup")
	fmt.Println("===============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "tutor.db"))

	fmt.Println("\n--- Model Configuration ---")
	provider := prompt(reader, "Provider (echo/gemini)", config.DefaultProvider)
	var model, apiKey string
	if provider == "gemini" {
		model = prompt(reader, "Model", "gemini-2.0-flash")
		apiKey = prompt(reader, "API key (use ${VAR} to read from the environment)", "${GEMINI_API_KEY}")
	}

	fmt.Println("\n--- Session Configuration ---")
	language := prompt(reader, "Default language (Português/English/Español)", string(store.DefaultLanguage))

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", config.DefaultLogLevel)
	logFormat := prompt(reader, "Log format (text/json)", config.DefaultLogFormat)

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	var cfg strings.Builder
	cfg.WriteString("# coven-tutor configuration\n")
	cfg.WriteString("# Generated by coven-tutor init\n\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n\n", dbPath))

	cfg.WriteString("model:\n")
	cfg.WriteString(fmt.Sprintf("  provider: %q\n", provider))
	if model != "" {
		cfg.WriteString(fmt.Sprintf("  model: %q\n", model))
	}
	if apiKey != "" {
		cfg.WriteString(fmt.Sprintf("  api_key: %q\n", apiKey))
	}
	cfg.WriteString("  timeout: \"60s\"\n\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n\n", jwtSecret))

	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  default_language: %q\n", language))
	cfg.WriteString(fmt.Sprintf("  directory_limit: %d\n", config.DefaultDirectoryLimit))
	cfg.WriteString("  dedupe_ttl: \"10m\"\n\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	green.Printf("  ✓ Created config: %s\n", outputFile)

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()
	green.Printf("  ✓ Database: %s\n", dbPath)

	agents, err := s.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("listing agents: %w", err)
	}
	if len(agents) == 0 {
		err := s.CreateAgent(ctx, &store.Agent{
			ID:           "tutor",
			Provider:     provider,
			Name:         "Tutor",
			Variant:      model,
			SystemPrompt: starterPrompt,
			Active:       true,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("creating starter agent: %w", err)
		}
		green.Println("  ✓ Created starter agent: tutor")
	}

	fmt.Println()
	color.New(color.FgYellow).Println("  Ready to go:")
	fmt.Println("    coven-tutor token --user me > ~/.config/coven/token")
	fmt.Println("    coven-tutor chat --route /tutor/tutor")
	fmt.Println()
	return nil
}

func isYes(answer string) bool {
	answer = strings.ToLower(answer)
	return answer == "yes" || answer == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
