package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
)

// classifierTemperature keeps the advisory checks close to deterministic.
const classifierTemperature = 0.3

// ModelChecks bundles the model-backed classifiers. All of them fail open:
// a gateway failure never blocks the user's message.
type ModelChecks struct {
	gateway ModelGateway
	logger  log.Logger
}

// NewModelChecks creates the default classifier set.
func NewModelChecks(gateway ModelGateway, logger log.Logger) *ModelChecks {
	return &ModelChecks{gateway: gateway, logger: logger}
}

const coherencePrompt = `You are evaluating if a customer question is coherent and understandable.

A question is INCOHERENT if:
- It's just random characters or gibberish (e.g., "asdfghjkl")
- It makes no grammatical sense
- It's completely unclear what the customer is asking

A question is COHERENT if:
- It's a real question, even if vague
- It asks for information, recommendations, or help
- It's understandable, even if you need to ask follow-up questions

Return JSON: {"coherent": true/false, "clarification": "what to ask if incoherent"}
Only mark as incoherent if it's truly gibberish or completely unclear.`

// CheckCoherence reports whether the message is understandable.
func (c *ModelChecks) CheckCoherence(ctx context.Context, message string) (bool, string) {
	var out struct {
		Coherent      bool   `json:"coherent"`
		Clarification string `json:"clarification"`
	}
	out.Coherent = true

	if err := c.classify(ctx, coherencePrompt, message, &out); err != nil {
		c.logger.Warn("coherence check failed, assuming coherent", "error", err)
		return true, ""
	}
	if out.Coherent {
		return true, ""
	}
	if out.Clarification == "" {
		out.Clarification = defaultClarification
	}
	return false, out.Clarification
}

const introPrompt = `Determine if this message is:
1. Just a greeting or introduction (e.g., "Hi", "Hello", "I'm John", "Hi there, I am Joshua")
2. A greeting/introduction WITH a question or request (e.g., "Hi, I need to upgrade my plan")

Return JSON: {"is_intro_only": true/false}
Only return true if it's ONLY a greeting/introduction with no question or request.`

const namePrompt = `Extract the person's name from the text. Return only the name, or 'none' if no name is found.`

// CheckIntroduction detects greeting-only messages and self-introduced names.
func (c *ModelChecks) CheckIntroduction(ctx context.Context, message string) Introduction {
	intro := Introduction{Name: c.extractName(ctx, message)}

	var out struct {
		IsIntroOnly bool `json:"is_intro_only"`
	}
	if err := c.classify(ctx, introPrompt, message, &out); err != nil {
		c.logger.Warn("introduction check failed, assuming regular message", "error", err)
		return intro
	}
	intro.IntroOnly = out.IsIntroOnly
	return intro
}

// extractName pulls a self-introduced name out of the message, or returns
// empty when there is none.
func (c *ModelChecks) extractName(ctx context.Context, message string) string {
	completion, err := c.gateway.Complete(ctx, llm.CompleteRequest{
		Messages: []llm.Message{
			llm.SystemMessage(namePrompt),
			llm.UserMessage(message),
		},
		Temperature: classifierTemperature,
	})
	if err != nil {
		c.logger.Warn("name extraction failed", "error", err)
		return ""
	}

	name := strings.ToLower(strings.TrimSpace(completion.Text))
	if name == "" || name == "none" || len(name) <= 1 || len(name) >= 50 {
		return ""
	}

	// Capitalize each word the way the customer would write their own name.
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

const answerabilityPrompt = `You are deciding whether a customer support agent for a SaaS project-management platform can plausibly answer a question using:
- Documentation about plans, pricing, features, refunds, billing, and policies
- Lookup tools for plan details, plan comparisons, feature availability, and common support issues

Return JSON: {"answerable": true/false}
Mark a question as unanswerable ONLY if it is clearly outside this scope, such as requests for legal advice, questions about unrelated companies, or tasks the agent cannot perform. When in doubt, mark it answerable.`

// CheckAnswerability reports whether the question is plausibly in scope.
func (c *ModelChecks) CheckAnswerability(ctx context.Context, message string) bool {
	var out struct {
		Answerable bool `json:"answerable"`
	}
	out.Answerable = true

	if err := c.classify(ctx, answerabilityPrompt, message, &out); err != nil {
		c.logger.Warn("answerability check failed, assuming answerable", "error", err)
		return true
	}
	return out.Answerable
}

const evaluatorPrompt = `Evaluate if the answer is satisfactory. Check:
1. Does it directly address the question?
2. Is it helpful and informative?
3. Is it polite and professional?
4. Does it avoid making up information?

IMPORTANT: If the question was just a greeting/introduction, the answer should be a warm welcome - that's satisfactory.

Return JSON: {"satisfactory": true/false, "reason": "why not satisfactory if false"}
If satisfactory=false, provide a brief reason.`

// Evaluate judges a candidate answer against the original question.
func (c *ModelChecks) Evaluate(ctx context.Context, answer, question string, toolsCalled []string) Verdict {
	toolsDesc := "none"
	if len(toolsCalled) > 0 {
		toolsDesc = strings.Join(toolsCalled, ", ")
	}
	input := fmt.Sprintf("Question: %s\n\nAnswer: %s\n\nTools used: %s", question, answer, toolsDesc)

	var out struct {
		Satisfactory bool   `json:"satisfactory"`
		Reason       string `json:"reason"`
	}
	out.Satisfactory = true

	if err := c.classify(ctx, evaluatorPrompt, input, &out); err != nil {
		c.logger.Warn("answer evaluation failed, accepting answer", "error", err)
		return Verdict{Satisfactory: true}
	}
	return Verdict{Satisfactory: out.Satisfactory, Reason: out.Reason}
}

// classify runs one classifier call and decodes its JSON verdict into out.
func (c *ModelChecks) classify(ctx context.Context, system, input string, out any) error {
	completion, err := c.gateway.Complete(ctx, llm.CompleteRequest{
		Messages: []llm.Message{
			llm.SystemMessage(system),
			llm.UserMessage(input),
		},
		Temperature: classifierTemperature,
	})
	if err != nil {
		return err
	}
	return decodeJSONObject(completion.Text, out)
}

// decodeJSONObject decodes the first JSON object embedded in s. Classifier
// replies sometimes wrap the object in prose or code fences.
func decodeJSONObject(s string, out any) error {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in classifier reply")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), out); err != nil {
		return fmt.Errorf("decoding classifier reply: %w", err)
	}
	return nil
}
