package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const (
	generateDefaultTemperature = 0.7
	generateDefaultMaxTokens   = 1000
)

type generateRequest struct {
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature"`
	MaxTokens   *int                 `json:"max_tokens"`
}

// generate proxies a chat completion to the configured upstream so clients
// never hold upstream credentials. Errors use {"message": ...} bodies.
func (rt *Router) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request: messages array is required"})
		return
	}
	if rt.completer == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Generation upstream not configured"})
		return
	}

	temperature := generateDefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := generateDefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	resp, err := rt.completer.Complete(r.Context(), domain.ChatRequest{
		Messages:    promptMessages(req.Messages),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err == nil {
		if _, ok := resp.FirstContent(); !ok {
			err = errors.New("upstream returned no choices")
		}
	}
	if err != nil {
		slog.Error("generate_proxy_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error: " + err.Error()})
		return
	}

	content, _ := resp.FirstContent()
	writeJSON(w, http.StatusOK, domain.NewChatResponse(content))
}

// promptMessages keeps the first system message and the last user message.
// Earlier turns are not forwarded.
func promptMessages(messages []domain.ChatMessage) []domain.ChatMessage {
	var system, user *domain.ChatMessage
	for i := range messages {
		switch strings.ToLower(messages[i].Role) {
		case domain.RoleSystem:
			if system == nil {
				system = &messages[i]
			}
		case domain.RoleUser:
			user = &messages[i]
		}
	}

	out := make([]domain.ChatMessage, 0, 2)
	if system != nil {
		out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system.Content})
	}
	if user != nil {
		out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: user.Content})
	}
	return out
}
