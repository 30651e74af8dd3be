package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbusflow/support-agent/internal/knowledge"
	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
	"github.com/nimbusflow/support-agent/internal/session"
)

// Config tunes the orchestrator.
type Config struct {
	CompanyName  string
	SupportEmail string

	// MaxRegenerations bounds the evaluate/regenerate cycle per turn.
	MaxRegenerations int

	// MaxToolRounds bounds tool-calling rounds within one generation.
	MaxToolRounds int

	// RetrievalTopK and MinRelevance tune the grounding retrieval step.
	RetrievalTopK int
	MinRelevance  float64
}

// Agent runs the per-turn orchestration loop.
type Agent struct {
	gateway   ModelGateway
	retriever Retriever
	tools     ToolRunner
	sessions  *session.Store

	coherence     CoherenceChecker
	intro         IntroChecker
	answerability AnswerabilityChecker
	evaluator     Evaluator

	companyName      string
	supportEmail     string
	maxRegenerations int
	maxToolRounds    int
	retrievalTopK    int
	minRelevance     float64

	logger log.Logger
}

// Option customizes the agent, mainly to swap classifiers in tests.
type Option func(*Agent)

// WithCoherenceChecker replaces the coherence classifier.
func WithCoherenceChecker(c CoherenceChecker) Option {
	return func(a *Agent) { a.coherence = c }
}

// WithIntroChecker replaces the introduction classifier.
func WithIntroChecker(c IntroChecker) Option {
	return func(a *Agent) { a.intro = c }
}

// WithAnswerabilityChecker replaces the answerability classifier.
func WithAnswerabilityChecker(c AnswerabilityChecker) Option {
	return func(a *Agent) { a.answerability = c }
}

// WithEvaluator replaces the answer evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(a *Agent) { a.evaluator = e }
}

// New creates an agent. Model-backed classifiers are installed by default;
// options can replace any of them.
func New(cfg Config, gateway ModelGateway, retriever Retriever, tools ToolRunner,
	sessions *session.Store, logger log.Logger, opts ...Option) *Agent {

	if cfg.MaxRegenerations <= 0 {
		cfg.MaxRegenerations = 3
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 5
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 4
	}

	checks := NewModelChecks(gateway, logger)
	a := &Agent{
		gateway:          gateway,
		retriever:        retriever,
		tools:            tools,
		sessions:         sessions,
		coherence:        checks,
		intro:            checks,
		answerability:    checks,
		evaluator:        checks,
		companyName:      cfg.CompanyName,
		supportEmail:     cfg.SupportEmail,
		maxRegenerations: cfg.MaxRegenerations,
		maxToolRounds:    cfg.MaxToolRounds,
		retrievalTopK:    cfg.RetrievalTopK,
		minRelevance:     cfg.MinRelevance,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunTurn processes one user message and returns the vetted answer. Model
// and tool failures surface as natural-language answers, never as errors;
// the only error return is a service-level authentication failure.
//
// Concurrent calls on the same session serialize on the session's turn lock,
// and the completed user/assistant pair is appended atomically at exit.
func (a *Agent) RunTurn(ctx context.Context, sessionID uuid.UUID, userMessage string) (*Response, error) {
	unlock := a.sessions.Lock(sessionID)
	defer unlock()

	trimmed := strings.TrimSpace(userMessage)
	if trimmed == "" {
		return a.finish(sessionID, userMessage, &Response{Text: defaultClarification})
	}

	intro := a.intro.CheckIntroduction(ctx, trimmed)
	if intro.Name != "" {
		if err := a.sessions.SetCustomerName(sessionID, intro.Name); err != nil {
			a.logger.Warn("storing customer name failed", "error", err)
		}
	}
	name := a.sessions.CustomerName(sessionID)

	if intro.IntroOnly {
		return a.finish(sessionID, userMessage, &Response{Text: a.greeting(name)})
	}

	if coherent, clarification := a.coherence.CheckCoherence(ctx, trimmed); !coherent {
		return a.finish(sessionID, userMessage, &Response{Text: personalize(name, clarification)})
	}

	if !a.answerability.CheckAnswerability(ctx, trimmed) {
		return a.finish(sessionID, userMessage, &Response{Text: a.unanswerable()})
	}

	results := a.retrieve(ctx, trimmed)
	transcript := a.buildTranscript(sessionID, name, trimmed, results)

	gen, transcript, err := a.generate(ctx, transcript)
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("model gateway authentication: %w", err)
		}
		a.logger.Error("generation failed, returning fallback", "error", err)
		return a.finish(sessionID, userMessage, &Response{Text: fallbackApology})
	}

	regenerations := 0
	for regenerations < a.maxRegenerations {
		verdict := a.evaluator.Evaluate(ctx, gen.text, trimmed, gen.toolsCalled)
		if verdict.Satisfactory {
			break
		}
		regenerations++

		a.logger.Debug("regenerating answer",
			"attempt", regenerations,
			"reason", verdict.Reason,
		)
		transcript = append(transcript,
			llm.AssistantMessage(gen.text),
			llm.UserMessage(fmt.Sprintf(
				"The previous answer was not satisfactory: %s. Please provide a better answer.",
				verdict.Reason)),
		)

		next, nextTranscript, err := a.generate(ctx, transcript)
		if err != nil {
			if isAuthError(err) {
				return nil, fmt.Errorf("model gateway authentication: %w", err)
			}
			// Keep the previous candidate rather than losing the turn.
			a.logger.Warn("regeneration failed, keeping previous candidate", "error", err)
			break
		}
		gen, transcript = next, nextTranscript
	}

	return a.finish(sessionID, userMessage, &Response{
		Text:          gen.text,
		SourcesUsed:   mergeSources(results, gen.sources),
		ToolsCalled:   gen.toolsCalled,
		Regenerations: regenerations,
	})
}

// retrieve grounds the question against the document corpus. Retrieval
// failures degrade to no context rather than blocking the turn.
func (a *Agent) retrieve(ctx context.Context, query string) []knowledge.Result {
	if a.retriever == nil {
		return nil
	}
	results, err := a.retriever.Search(ctx, query, a.retrievalTopK, a.minRelevance)
	if err != nil {
		a.logger.Warn("retrieval failed, continuing without context", "error", err)
		return nil
	}
	return results
}

// buildTranscript assembles the working transcript for a generation: system
// instructions, retrieved context, persisted history, then the new message.
func (a *Agent) buildTranscript(sessionID uuid.UUID, name, message string, results []knowledge.Result) []llm.Message {
	transcript := []llm.Message{llm.SystemMessage(a.systemPrompt(name))}
	if block := retrievalContext(results); block != "" {
		transcript = append(transcript, llm.SystemMessage(block))
	}

	history, err := a.sessions.History(sessionID)
	if err != nil {
		a.logger.Warn("loading session history failed", "error", err)
	}
	transcript = append(transcript, history...)
	return append(transcript, llm.UserMessage(message))
}

// finish appends the completed turn to the session and returns the response.
// Every exit path goes through here so history always grows by exactly one
// user/assistant pair per turn.
func (a *Agent) finish(sessionID uuid.UUID, userMessage string, resp *Response) (*Response, error) {
	err := a.sessions.AppendTurn(sessionID, session.Turn{
		User:      llm.UserMessage(userMessage),
		Assistant: llm.AssistantMessage(resp.Text),
	})
	if err != nil {
		a.logger.Error("appending turn failed", "error", err)
	}
	return resp, nil
}

// mergeSources combines retrieval source labels with tool source labels,
// deduplicated, retrieval first.
func mergeSources(results []knowledge.Result, toolSources []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(label string) {
		if label == "" {
			return
		}
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	for _, r := range results {
		add(r.Document.Source)
	}
	for _, s := range toolSources {
		add(s)
	}
	return out
}

// isAuthError reports whether err is a fatal credential failure.
func isAuthError(err error) bool {
	var me *llm.ModelError
	return errors.As(err, &me) && me.Kind == llm.KindAuth
}
