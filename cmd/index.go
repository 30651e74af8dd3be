package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimbusflow/support-agent/db"
	"github.com/nimbusflow/support-agent/internal/config"
	"github.com/nimbusflow/support-agent/internal/ingest"
	"github.com/nimbusflow/support-agent/internal/knowledge"
	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
)

// runIndex (re)builds the knowledge base from the docs directory.
func runIndex(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	dir := cfg.DocsDir
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}
	if dir == "" {
		return fmt.Errorf("no docs directory configured; pass one as an argument or set docs_dir")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	gateway, err := llm.New(llm.Config{
		APIKey:            cfg.APIKey(),
		BaseURL:           cfg.OpenAIBaseURL,
		Model:             cfg.ModelName,
		EmbeddingModel:    cfg.EmbeddingModel,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating model gateway: %w", err)
	}

	store := knowledge.New(knowledge.NewPGQuerier(pool), gateway, logger)
	if err = ingest.New(store, logger).Run(ctx, dir); err != nil {
		return fmt.Errorf("indexing documents: %w", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}
	logger.Info("knowledge base indexed", "dir", dir, "documents", count)
	return nil
}
