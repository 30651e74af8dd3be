package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/tools"
)

// errNoAnswer means a generation attempt produced neither usable text nor a
// recoverable path: every tool call in a round failed and the model yielded
// nothing. The orchestrator answers with the fixed fallback.
var errNoAnswer = errors.New("generation produced no answer")

// generation is the outcome of one candidate-producing attempt.
type generation struct {
	text        string
	toolsCalled []string
	sources     []string
}

// generate runs the tool-calling loop for one candidate answer. The
// transcript already carries system instructions, history, and the user
// message; tool exchanges appended here are working state for this attempt
// only and are not persisted to the session.
//
// The returned transcript includes this attempt's exchanges so a
// regeneration can build on it.
func (a *Agent) generate(ctx context.Context, transcript []llm.Message) (*generation, []llm.Message, error) {
	gen := &generation{}
	defs := a.tools.Defs()

	for round := 0; round <= a.maxToolRounds; round++ {
		completion, err := a.complete(ctx, transcript, defs)
		if err != nil {
			return nil, transcript, err
		}

		if len(completion.ToolCalls) == 0 {
			gen.text = completion.Text
			if gen.text == "" {
				return nil, transcript, errNoAnswer
			}
			return gen, transcript, nil
		}

		if round == a.maxToolRounds {
			// Round budget exhausted with the model still asking for tools.
			if completion.Text != "" {
				gen.text = completion.Text
				return gen, transcript, nil
			}
			return nil, transcript, errNoAnswer
		}

		transcript = append(transcript, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		failures := 0
		for _, call := range completion.ToolCalls {
			gen.toolsCalled = append(gen.toolsCalled, call.Name)
			if label, ok := a.tools.SourceLabel(call.Name); ok && label != "" {
				gen.sources = append(gen.sources, label)
			}

			result, err := a.tools.Invoke(ctx, call.Name, call.Arguments)
			if err != nil {
				failures++
				result = toolFailureMessage(call.Name, err)
				a.logger.Warn("tool invocation failed",
					"tool", call.Name,
					"kind", tools.ErrorKindOf(err).String(),
				)
			}
			transcript = append(transcript, llm.ToolMessage(result, call.ID))
		}

		if failures == len(completion.ToolCalls) {
			// Every tool in the round failed. Give the model one chance to
			// answer from the failure descriptions; anything else falls back.
			completion, err := a.complete(ctx, transcript, defs)
			if err != nil || completion.Text == "" {
				return nil, transcript, errNoAnswer
			}
			gen.text = completion.Text
			return gen, transcript, nil
		}
	}

	return nil, transcript, errNoAnswer
}

// complete calls the gateway, giving the model one conform re-prompt when it
// returns a malformed reply.
func (a *Agent) complete(ctx context.Context, transcript []llm.Message, defs []llm.ToolDef) (*llm.Completion, error) {
	completion, err := a.gateway.Complete(ctx, llm.CompleteRequest{
		Messages: transcript,
		Tools:    defs,
	})
	if err == nil {
		return completion, nil
	}
	if llm.ErrorKindOf(err) != llm.KindInvalidResponse {
		return nil, err
	}

	a.logger.Warn("malformed model reply, re-prompting for plain text", "error", err)
	retry := append(append([]llm.Message(nil), transcript...),
		llm.UserMessage("Your previous reply was malformed. Please answer in plain text without tool calls."))
	return a.gateway.Complete(ctx, llm.CompleteRequest{Messages: retry})
}

// toolFailureMessage renders a tool failure as data the model can react to.
func toolFailureMessage(name string, err error) string {
	switch tools.ErrorKindOf(err) {
	case tools.KindNotFound:
		return fmt.Sprintf("Error executing %s: the tool is not available.", name)
	case tools.KindInvalidArguments:
		return fmt.Sprintf("Error executing %s: the arguments were invalid. Adjust them and try again.", name)
	case tools.KindUpstreamUnavailable:
		return fmt.Sprintf("Error executing %s: the backing system is temporarily unavailable.", name)
	default:
		return fmt.Sprintf("Error executing %s: the lookup failed.", name)
	}
}
