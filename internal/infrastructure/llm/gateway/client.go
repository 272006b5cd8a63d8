package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

const generatePath = "/api/generate"

// Client calls a generation endpoint that speaks the chat-completions shape.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.SingleAttempt())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("marshal generate request: %w", err)
	}

	out, err := resilience.Call(ctx, c.executor, "gateway_generate", func(ctx context.Context) (domain.ChatResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
		if err != nil {
			return domain.ChatResponse{}, fmt.Errorf("create generate request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return domain.ChatResponse{}, fmt.Errorf("gateway generate request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return domain.ChatResponse{}, resilience.NewStatusError("gateway", "generate", resp)
		}

		var decoded domain.ChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return domain.ChatResponse{}, fmt.Errorf("decode generate response: %w", err)
		}
		if _, ok := decoded.FirstContent(); !ok {
			return domain.ChatResponse{}, errors.New("gateway generate: response has no choices")
		}
		return decoded, nil
	}, resilience.ClassifyTransportError)
	if err != nil {
		return domain.ChatResponse{}, resilience.MarkTemporary("gateway generate", err)
	}
	return out, nil
}
