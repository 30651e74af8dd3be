package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"github.com/nimbusflow/support-agent/internal/log"
)

// Config configures the gateway.
type Config struct {
	APIKey         string
	BaseURL        string // empty means the provider default
	Model          string
	EmbeddingModel string

	// RequestsPerSecond bounds outbound provider calls. Zero disables limiting.
	RequestsPerSecond float64

	Retry   RetryConfig
	Breaker BreakerConfig
}

// Gateway is the model gateway. It is safe for concurrent use.
type Gateway struct {
	client         openai.Client
	model          string
	embeddingModel string

	logger      log.Logger
	retryConfig RetryConfig
	limiter     *rate.Limiter
	breaker     *breaker
}

// New creates a gateway against an OpenAI-compatible endpoint.
func New(cfg Config, logger log.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, newModelError(KindAuth, errors.New("API key is empty"))
	}
	if cfg.Model == "" {
		return nil, errors.New("model name is empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Gateway{
		client:         openai.NewClient(opts...),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger,
		retryConfig:    cfg.Retry,
		limiter:        limiter,
		breaker:        newBreaker(cfg.Breaker),
	}, nil
}

// Complete sends one chat completion request and returns the model's reply.
func (g *Gateway) Complete(ctx context.Context, req CompleteRequest) (*Completion, error) {
	if err := g.breaker.allow(); err != nil {
		return nil, newModelError(KindUnavailable, err)
	}

	params := openai.ChatCompletionNewParams{
		Messages: toProviderMessages(req.Messages),
		Model:    openai.ChatModel(g.model),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = toProviderTools(req.Tools)
	}

	var completion *openai.ChatCompletion
	err := g.withRetry(ctx, func(ctx context.Context) error {
		resp, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return classify(err)
		}
		completion = resp
		return nil
	})
	if err != nil {
		g.breaker.failure()
		return nil, err
	}

	result, err := fromProviderCompletion(completion)
	if err != nil {
		g.breaker.failure()
		return nil, err
	}

	g.breaker.success()
	return result, nil
}

// Embed returns one embedding vector per input text, in input order.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if g.embeddingModel == "" {
		return nil, errors.New("embedding model is not configured")
	}
	if err := g.breaker.allow(); err != nil {
		return nil, newModelError(KindUnavailable, err)
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(g.embeddingModel),
	}

	var resp *openai.CreateEmbeddingResponse
	err := g.withRetry(ctx, func(ctx context.Context) error {
		r, err := g.client.Embeddings.New(ctx, params)
		if err != nil {
			return classify(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		g.breaker.failure()
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		g.breaker.failure()
		return nil, newModelError(KindInvalidResponse,
			fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	g.breaker.success()
	return vectors, nil
}

// toProviderMessages converts transcript messages to provider params.
func toProviderMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(m.Content),
				}
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls,
					openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: tc.ID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      tc.Name,
								Arguments: string(tc.Arguments),
							},
						},
					})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

// toProviderTools converts tool definitions to provider params.
func toProviderTools(tools []ToolDef) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		}))
	}
	return out
}

// fromProviderCompletion extracts the reply from a provider completion.
func fromProviderCompletion(completion *openai.ChatCompletion) (*Completion, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return nil, newModelError(KindInvalidResponse, errors.New("completion has no choices"))
	}

	msg := completion.Choices[0].Message
	result := &Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}

	if result.Text == "" && len(result.ToolCalls) == 0 {
		return nil, newModelError(KindInvalidResponse, errors.New("completion has neither text nor tool calls"))
	}
	return result, nil
}

// classify maps a provider error to a typed gateway error.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newModelError(KindTimeout, err)
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return newModelError(KindRateLimited, err)
		case apierr.StatusCode == http.StatusUnauthorized || apierr.StatusCode == http.StatusForbidden:
			return newModelError(KindAuth, err)
		case apierr.StatusCode >= 500:
			return newModelError(KindUnavailable, err)
		default:
			return newModelError(KindInvalidResponse, err)
		}
	}

	// Connection-level failure without an HTTP status.
	return newModelError(KindUnavailable, err)
}
