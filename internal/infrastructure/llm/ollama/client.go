package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.SingleAttempt())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// EmbeddingModel encodes text with an Ollama embedding model.
type EmbeddingModel struct {
	client *Client
	model  string
}

func NewEmbeddingModel(client *Client, model string) *EmbeddingModel {
	return &EmbeddingModel{client: client, model: model}
}

func (m *EmbeddingModel) Name() string {
	return "ollama/" + m.model
}

// Load checks that the model is available on the server.
func (m *EmbeddingModel) Load(ctx context.Context) error {
	var response struct {
		Details map[string]any `json:"details"`
	}
	return m.client.postJSON(ctx, "/api/show", map[string]any{"model": m.model}, &response, "show")
}

func (m *EmbeddingModel) Encode(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": m.model,
		"input": text,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := m.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, errors.New("ollama embed: empty embedding result")
	}
	return response.Embeddings[0], nil
}

func (m *EmbeddingModel) Close() error {
	return nil
}

// ChatCompleter answers chat requests with /api/chat.
type ChatCompleter struct {
	client *Client
	model  string
}

func NewChatCompleter(client *Client, model string) *ChatCompleter {
	return &ChatCompleter{client: client, model: model}
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  map[string]any       `json:"options,omitempty"`
}

type chatResponse struct {
	Message domain.ChatMessage `json:"message"`
	Done    bool               `json:"done"`
}

func (c *ChatCompleter) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	body := chatRequest{
		Model:    c.model,
		Messages: req.Messages,
		Stream:   false,
	}
	options := map[string]any{}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		options["num_predict"] = *req.MaxTokens
	}
	if len(options) > 0 {
		body.Options = options
	}

	var response chatResponse
	if err := c.client.postJSON(ctx, "/api/chat", body, &response, "chat"); err != nil {
		return domain.ChatResponse{}, err
	}
	if strings.TrimSpace(response.Message.Content) == "" {
		return domain.ChatResponse{}, fmt.Errorf("ollama chat: empty message from %s", c.model)
	}
	return domain.NewChatResponse(response.Message.Content), nil
}
