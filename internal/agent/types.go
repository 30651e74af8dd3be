// Package agent implements the per-turn orchestration loop: pre-checks on
// the incoming message, retrieval grounding, bounded tool-calling rounds
// against the model, and an evaluate/regenerate cycle that accepts the best
// candidate within a fixed attempt budget.
package agent

import (
	"context"
	"encoding/json"

	"github.com/nimbusflow/support-agent/internal/knowledge"
	"github.com/nimbusflow/support-agent/internal/llm"
)

// Response is the externally visible result of one orchestration run.
type Response struct {
	Text          string   `json:"message"`
	SourcesUsed   []string `json:"sources_used"`
	ToolsCalled   []string `json:"tools_called"`
	Regenerations int      `json:"regenerations"`
}

// ModelGateway is the completion surface the orchestrator needs.
// Satisfied by llm.Gateway.
type ModelGateway interface {
	Complete(ctx context.Context, req llm.CompleteRequest) (*llm.Completion, error)
}

// Retriever is the semantic search surface. Satisfied by knowledge.Store.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, minScore float64) ([]knowledge.Result, error)
}

// ToolRunner is the tool dispatch surface. Satisfied by tools.Registry.
type ToolRunner interface {
	Defs() []llm.ToolDef
	Invoke(ctx context.Context, name string, args json.RawMessage) (string, error)
	SourceLabel(name string) (string, bool)
}

// Verdict is the evaluator's judgment of a candidate answer.
type Verdict struct {
	Satisfactory bool
	Reason       string
}

// CoherenceChecker decides whether a message is understandable. The returned
// clarification is shown to the user when coherent is false. Implementations
// fail open: on their own failure they report coherent.
type CoherenceChecker interface {
	CheckCoherence(ctx context.Context, message string) (coherent bool, clarification string)
}

// Introduction is the result of introduction detection.
type Introduction struct {
	// IntroOnly is true when the message is a greeting or self-introduction
	// with no question or request attached.
	IntroOnly bool

	// Name is the customer's name when the message introduces one.
	Name string
}

// IntroChecker detects greetings and extracts self-introduced names.
// Implementations fail open: on failure they report no introduction.
type IntroChecker interface {
	CheckIntroduction(ctx context.Context, message string) Introduction
}

// AnswerabilityChecker decides whether a question is plausibly answerable
// with the available corpus and tools. Implementations fail open: on failure
// they report answerable.
type AnswerabilityChecker interface {
	CheckAnswerability(ctx context.Context, message string) bool
}

// Evaluator judges a candidate answer against the original question.
// Implementations fail open: on failure they report satisfactory.
type Evaluator interface {
	Evaluate(ctx context.Context, answer, question string, toolsCalled []string) Verdict
}
