package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbusflow/support-agent/internal/catalog"
	"github.com/nimbusflow/support-agent/internal/knowledge"
)

// Source labels reported as answer provenance.
const (
	SourcePricingCatalog = "Pricing Catalog"
	SourceFeatureMatrix  = "Feature Matrix"
	SourceIssueDatabase  = "Support Issue Database"
	SourceKnowledgeBase  = "Knowledge Base"
)

// planNames are the subscription tiers accepted by plan parameters.
var planNames = []any{"Free", "Starter", "Professional", "Business", "Enterprise"}

// KnowledgeSearcher is the retrieval surface the search tool needs.
// Satisfied by knowledge.Store.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, topK int, minScore float64) ([]knowledge.Result, error)
}

// BuiltinConfig wires the built-in tools to their backing systems.
type BuiltinConfig struct {
	Catalog   *catalog.Store
	Knowledge KnowledgeSearcher

	// RetrievalTopK and MinRelevance tune the search_knowledge_base tool.
	RetrievalTopK int
	MinRelevance  float64
}

// RegisterBuiltins registers the standard support tool set.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) error {
	builtins := []struct {
		desc    Descriptor
		handler Handler
	}{
		{
			desc: Descriptor{
				Name:        "get_pricing_info",
				Description: "Get detailed pricing information for subscription plans.",
				SourceLabel: SourcePricingCatalog,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"plan_name": map[string]any{
							"type":        "string",
							"description": "Specific plan name (Free, Starter, Professional, Business, Enterprise).",
							"enum":        planNames,
						},
					},
					"required": []any{},
				},
			},
			handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					PlanName string `json:"plan_name"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				return cfg.Catalog.PricingInfo(ctx, in.PlanName)
			},
		},
		{
			desc: Descriptor{
				Name:        "compare_plans",
				Description: "Compare two subscription plans side by side.",
				SourceLabel: SourcePricingCatalog,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"plan1": map[string]any{
							"type":        "string",
							"description": "First plan to compare",
							"enum":        planNames,
						},
						"plan2": map[string]any{
							"type":        "string",
							"description": "Second plan to compare",
							"enum":        planNames,
						},
					},
					"required": []any{"plan1", "plan2"},
				},
			},
			handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Plan1 string `json:"plan1"`
					Plan2 string `json:"plan2"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				return cfg.Catalog.ComparePlans(ctx, in.Plan1, in.Plan2)
			},
		},
		{
			desc: Descriptor{
				Name:        "check_feature_availability",
				Description: "Check if a specific feature is available and on which plans.",
				SourceLabel: SourceFeatureMatrix,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"feature_name": map[string]any{
							"type":        "string",
							"description": "Name or keyword of the feature to check",
						},
						"plan_name": map[string]any{
							"type":        "string",
							"description": "Optionally check for a specific plan",
							"enum":        planNames,
						},
					},
					"required": []any{"feature_name"},
				},
			},
			handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					FeatureName string `json:"feature_name"`
					PlanName    string `json:"plan_name"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				return cfg.Catalog.FeatureAvailability(ctx, in.FeatureName, in.PlanName)
			},
		},
		{
			desc: Descriptor{
				Name:        "get_support_resolution",
				Description: "Find resolution steps for common support issues.",
				SourceLabel: SourceIssueDatabase,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"issue_keyword": map[string]any{
							"type":        "string",
							"description": "Keyword describing the issue (e.g., 'login', 'billing', 'slow')",
						},
					},
					"required": []any{"issue_keyword"},
				},
			},
			handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					IssueKeyword string `json:"issue_keyword"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				return cfg.Catalog.SupportResolution(ctx, in.IssueKeyword)
			},
		},
		{
			desc: Descriptor{
				Name:        "search_knowledge_base",
				Description: "Search the company knowledge base for general information.",
				SourceLabel: SourceKnowledgeBase,
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Search query for the knowledge base",
						},
					},
					"required": []any{"query"},
				},
			},
			handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Query string `json:"query"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", err
				}
				return searchKnowledgeBase(ctx, cfg, in.Query)
			},
		},
		{
			desc: Descriptor{
				Name:        "list_all_plans",
				Description: "List all available subscription plans with basic pricing.",
				SourceLabel: SourcePricingCatalog,
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
					"required":   []any{},
				},
			},
			handler: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return cfg.Catalog.ListPlans(ctx)
			},
		},
	}

	for _, b := range builtins {
		if err := r.Register(b.desc, b.handler); err != nil {
			return fmt.Errorf("registering %s: %w", b.desc.Name, err)
		}
	}
	return nil
}

// searchKnowledgeBase formats retrieval hits with provenance and a coarse
// relevance label per passage.
func searchKnowledgeBase(ctx context.Context, cfg BuiltinConfig, query string) (string, error) {
	results, err := cfg.Knowledge.Search(ctx, query, cfg.RetrievalTopK, cfg.MinRelevance)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant information found in the knowledge base.", nil
	}

	sections := make([]string, len(results))
	for i, r := range results {
		sections[i] = fmt.Sprintf("[Source: %s | Relevance: %s]\n%s",
			r.Document.Source, knowledge.RelevanceBand(r.Score), r.Document.Content)
	}
	return strings.Join(sections, "\n\n"), nil
}
