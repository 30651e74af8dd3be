package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
)

// scriptedGateway returns queued completions in order, then errors.
type scriptedGateway struct {
	replies []string
	err     error
}

func (s *scriptedGateway) Complete(context.Context, llm.CompleteRequest) (*llm.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return &llm.Completion{Text: reply}, nil
}

func TestCheckCoherence(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantCoherent  bool
		wantClarifies string
	}{
		{
			name:         "coherent",
			reply:        `{"coherent": true}`,
			wantCoherent: true,
		},
		{
			name:          "incoherent with clarification",
			reply:         `{"coherent": false, "clarification": "What would you like to know?"}`,
			wantCoherent:  false,
			wantClarifies: "What would you like to know?",
		},
		{
			name:          "incoherent without clarification falls back",
			reply:         `{"coherent": false}`,
			wantCoherent:  false,
			wantClarifies: defaultClarification,
		},
		{
			name:         "prose-wrapped JSON",
			reply:        "Sure! Here is the verdict:\n```json\n{\"coherent\": true}\n```",
			wantCoherent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := NewModelChecks(&scriptedGateway{replies: []string{tt.reply}}, log.NewNop())
			coherent, clarification := checks.CheckCoherence(context.Background(), "some question")
			assert.Equal(t, tt.wantCoherent, coherent)
			if !tt.wantCoherent {
				assert.Equal(t, tt.wantClarifies, clarification)
			}
		})
	}
}

func TestCheckCoherenceFailsOpen(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{err: errors.New("down")}, log.NewNop())
	coherent, _ := checks.CheckCoherence(context.Background(), "anything")
	assert.True(t, coherent)
}

func TestCheckIntroduction(t *testing.T) {
	// Name extraction call first, then the intro-only classification.
	checks := NewModelChecks(&scriptedGateway{replies: []string{
		"alex",
		`{"is_intro_only": false}`,
	}}, log.NewNop())

	intro := checks.CheckIntroduction(context.Background(), "Hi, I'm Alex, what plans do you have?")
	assert.Equal(t, "Alex", intro.Name)
	assert.False(t, intro.IntroOnly)
}

func TestCheckIntroductionGreetingOnly(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{replies: []string{
		"none",
		`{"is_intro_only": true}`,
	}}, log.NewNop())

	intro := checks.CheckIntroduction(context.Background(), "Hello there")
	assert.Empty(t, intro.Name)
	assert.True(t, intro.IntroOnly)
}

func TestCheckIntroductionFailsOpen(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{err: errors.New("down")}, log.NewNop())
	intro := checks.CheckIntroduction(context.Background(), "Hi, I'm Alex")
	assert.Empty(t, intro.Name)
	assert.False(t, intro.IntroOnly)
}

func TestExtractNameValidation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain name", "alex", "Alex"},
		{"multi-word name", "mary jane watson", "Mary Jane Watson"},
		{"none sentinel", "none", ""},
		{"empty reply", "   ", ""},
		{"single character", "a", ""},
		{"absurdly long", string(make([]byte, 60)), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := NewModelChecks(&scriptedGateway{replies: []string{tt.reply}}, log.NewNop())
			got := checks.extractName(context.Background(), "irrelevant")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckAnswerability(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{replies: []string{`{"answerable": false}`}}, log.NewNop())
	assert.False(t, checks.CheckAnswerability(context.Background(), "Can you fix my car?"))

	checks = NewModelChecks(&scriptedGateway{replies: []string{`{"answerable": true}`}}, log.NewNop())
	assert.True(t, checks.CheckAnswerability(context.Background(), "What plans do you offer?"))
}

func TestCheckAnswerabilityFailsOpen(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{err: errors.New("down")}, log.NewNop())
	assert.True(t, checks.CheckAnswerability(context.Background(), "anything"))
}

func TestEvaluate(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{replies: []string{
		`{"satisfactory": false, "reason": "does not address the question"}`,
	}}, log.NewNop())

	verdict := checks.Evaluate(context.Background(), "Our plans are great.", "What is your refund policy?", nil)
	assert.False(t, verdict.Satisfactory)
	assert.Equal(t, "does not address the question", verdict.Reason)
}

func TestEvaluateFailsOpen(t *testing.T) {
	checks := NewModelChecks(&scriptedGateway{err: errors.New("down")}, log.NewNop())
	verdict := checks.Evaluate(context.Background(), "answer", "question", []string{"list_all_plans"})
	assert.True(t, verdict.Satisfactory)
}

func TestDecodeJSONObject(t *testing.T) {
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, decodeJSONObject("noise {\"ok\": true} trailing", &out))
	assert.True(t, out.OK)

	assert.Error(t, decodeJSONObject("no braces here", &out))
	assert.Error(t, decodeJSONObject("{broken", &out))
}
