package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by the pgx driver.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for correctness and returns the first
// problem found. Errors wrap the package sentinel errors so callers can use
// errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.APIKey() == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY environment variable is not set", ErrMissingAPIKey)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return fmt.Errorf("%w: embedding model is empty", ErrInvalidEmbeddingModel)
	}
	if c.LLMRequestsPerSecond < 0 {
		return fmt.Errorf("%w: %g is negative", ErrInvalidRequestRate, c.LLMRequestsPerSecond)
	}

	if c.MaxRegenerations < 0 || c.MaxRegenerations > MaxAllowedRegenerations {
		return fmt.Errorf("%w: %d is outside [0, %d]",
			ErrInvalidMaxRegenerations, c.MaxRegenerations, MaxAllowedRegenerations)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > MaxAllowedToolRounds {
		return fmt.Errorf("%w: %d is outside [1, %d]",
			ErrInvalidMaxToolRounds, c.MaxToolRounds, MaxAllowedToolRounds)
	}
	if c.RetrievalTopK < 1 || c.RetrievalTopK > MaxAllowedRetrievalTopK {
		return fmt.Errorf("%w: %d is outside [1, %d]",
			ErrInvalidRetrievalTopK, c.RetrievalTopK, MaxAllowedRetrievalTopK)
	}

	if c.SessionTTLMinutes < 1 {
		return fmt.Errorf("%w: %d minutes, must be at least 1", ErrInvalidSessionTTL, c.SessionTTLMinutes)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host is empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d is outside [1, 65535]", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name is empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q is not a recognized mode", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}
