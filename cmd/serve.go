package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbusflow/support-agent/api"
	"github.com/nimbusflow/support-agent/db"
	"github.com/nimbusflow/support-agent/internal/agent"
	"github.com/nimbusflow/support-agent/internal/catalog"
	"github.com/nimbusflow/support-agent/internal/config"
	"github.com/nimbusflow/support-agent/internal/knowledge"
	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
	"github.com/nimbusflow/support-agent/internal/session"
	"github.com/nimbusflow/support-agent/internal/tools"
)

// runServe initializes all components and starts the HTTP API server.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr := cfg.Addr
	if len(os.Args) > 2 {
		addr = os.Args[2]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting support agent", "version", AppVersion, "model", cfg.ModelName)

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

	knowledgeStore := knowledge.New(knowledge.NewPGQuerier(pool), gateway, logger)
	catalogStore := catalog.New(catalog.NewPGQuerier(pool), cfg.SupportEmail)

	registry := tools.NewRegistry(logger)
	if err = tools.RegisterBuiltins(registry, tools.BuiltinConfig{
		Catalog:       catalogStore,
		Knowledge:     knowledgeStore,
		RetrievalTopK: cfg.RetrievalTopK,
		MinRelevance:  cfg.MinRelevance,
	}); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	sessions := session.NewStore(session.StoreConfig{
		TTL:         time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		MaxMessages: cfg.MaxHistoryMessages,
	}, logger)
	go sessions.Run(ctx)

	supportAgent := agent.New(agent.Config{
		CompanyName:      cfg.CompanyName,
		SupportEmail:     cfg.SupportEmail,
		MaxRegenerations: cfg.MaxRegenerations,
		MaxToolRounds:    cfg.MaxToolRounds,
		RetrievalTopK:    cfg.RetrievalTopK,
		MinRelevance:     cfg.MinRelevance,
	}, gateway, knowledgeStore, registry, sessions, logger)

	server := api.NewServer(supportAgent, sessions, registry, pool, cfg.CORSOrigins, logger)
	return server.Run(ctx, addr)
}
