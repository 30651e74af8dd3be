// Package cmd provides the CLI commands for the support agent.
//
// Commands:
//   - serve: HTTP API server hosting the conversational agent
//   - index: (re)build the knowledge base from the docs directory
//
// Signal handling and graceful shutdown are implemented for all
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nimbusflow/support-agent/internal/log"
)

// Execute is the main entry point for the support-agent CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: os.Getenv("LOG_JSON") != ""})

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "index":
		return runIndex(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("support-agent - NimbusFlow customer support assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  support-agent serve [addr]  Start the HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  support-agent index [dir]   Index support documents into the knowledge base")
	fmt.Println("  support-agent --version     Show version information")
	fmt.Println("  support-agent --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY     Required: OpenAI API key")
	fmt.Println("  OPENAI_BASE_URL    Optional: alternate OpenAI-compatible endpoint")
	fmt.Println("  DATABASE_URL       Optional: PostgreSQL connection URL")
	fmt.Println("  DEBUG              Optional: enable debug logging")
	fmt.Println("  LOG_JSON           Optional: emit JSON logs")
}
