package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Completer sends chat requests to an OpenAI-compatible API. Retries are left
// to the executor, so the SDK's own retry loop is disabled.
type Completer struct {
	client   openai.Client
	model    string
	executor *resilience.Executor
}

func NewCompleter(cfg Config, executor *resilience.Executor) *Completer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.SingleAttempt())
	}
	return &Completer{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		executor: executor,
	}
}

func (c *Completer) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}

	out, err := resilience.Call(ctx, c.executor, "openai_chat", func(ctx context.Context) (domain.ChatResponse, error) {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return domain.ChatResponse{}, asStatusError(err)
		}
		resp := domain.ChatResponse{Choices: make([]domain.ChatChoice, 0, len(completion.Choices))}
		for _, choice := range completion.Choices {
			resp.Choices = append(resp.Choices, domain.ChatChoice{
				Message: domain.ChatMessage{Role: domain.RoleAssistant, Content: choice.Message.Content},
			})
		}
		if len(resp.Choices) == 0 {
			return domain.ChatResponse{}, errors.New("openai chat: response has no choices")
		}
		return resp, nil
	}, resilience.ClassifyTransportError)
	if err != nil {
		return domain.ChatResponse{}, resilience.MarkTemporary("openai chat", err)
	}
	return out, nil
}

func toMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

// asStatusError maps SDK API errors onto the shared status error so the
// executor classifies them like any other upstream.
func asStatusError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai chat request: %w", err)
	}
	return &resilience.StatusError{
		Service:    "openai",
		Operation:  "chat",
		StatusCode: apiErr.StatusCode,
		Status:     fmt.Sprintf("%d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
		Body:       apiErr.Message,
	}
}
