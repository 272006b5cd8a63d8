package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

func TestCompletePostsChatRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris"}}]}`))
	}))
	defer server.Close()

	temp := 0.5
	resp, err := New(server.URL+"/", time.Second, nil).Complete(context.Background(), domain.ChatRequest{
		Messages:    []domain.ChatMessage{{Role: domain.RoleUser, Content: "capital?"}},
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if content, _ := resp.FirstContent(); content != "Paris" {
		t.Fatalf("unexpected content %q", content)
	}
	if got["temperature"] != 0.5 {
		t.Fatalf("expected temperature in body, got %v", got)
	}
	if _, ok := got["max_tokens"]; ok {
		t.Fatalf("unset max_tokens must be omitted")
	}
}

func TestCompleteSurfacesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid request: messages array is required"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second, nil).Complete(context.Background(), domain.ChatRequest{})
	if err == nil || !strings.Contains(err.Error(), "messages array is required") {
		t.Fatalf("expected error body in error, got %v", err)
	}
}

func TestCompleteRetriesAndMarksTemporary(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	_, err := New(server.URL, time.Second, exec).Complete(context.Background(), domain.ChatRequest{})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestCompleteRejectsResponseWithoutChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second, nil).Complete(context.Background(), domain.ChatRequest{}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
