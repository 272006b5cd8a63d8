package embedding

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type fakeModel struct {
	loadErr  error
	loads    atomic.Int32
	closes   atomic.Int32
	failText string

	mu       sync.Mutex
	inflight int
	peak     int
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Load(context.Context) error {
	m.loads.Add(1)
	return m.loadErr
}

func (m *fakeModel) Encode(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.inflight++
	if m.inflight > m.peak {
		m.peak = m.inflight
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if m.failText != "" && strings.Contains(text, m.failText) {
		return nil, errors.New("encode failed")
	}
	return []float32{3, 4}, nil
}

func (m *fakeModel) Close() error {
	m.closes.Add(1)
	return nil
}

func chunksOf(texts ...string) []domain.TextChunk {
	out := make([]domain.TextChunk, len(texts))
	for i, text := range texts {
		out[i] = domain.TextChunk{ID: text, Text: text, Metadata: domain.ChunkMetadata{Location: domain.IntPtr(i)}}
	}
	return out
}

func TestEmbedNormalizesAndKeepsOrder(t *testing.T) {
	svc := NewService(&fakeModel{}, WithBatchPause(0))
	out, err := svc.Embed(context.Background(), chunksOf("a", "b", "c", "d", "e", "f", "g"))
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(out) != 7 {
		t.Fatalf("expected 7 chunks, got %d", len(out))
	}
	for i, chunk := range out {
		if chunk.ID != string(rune('a'+i)) {
			t.Fatalf("order changed at %d: %s", i, chunk.ID)
		}
		if math.Abs(float64(chunk.Embedding[0])-0.6) > 1e-6 || math.Abs(float64(chunk.Embedding[1])-0.8) > 1e-6 {
			t.Fatalf("expected unit vector, got %v", chunk.Embedding)
		}
	}
}

func TestEmbedIsolatesChunkFailures(t *testing.T) {
	model := &fakeModel{failText: "bad"}
	svc := NewService(model, WithBatchPause(0))
	input := chunksOf("good one", "bad one", "good two")

	out, err := svc.Embed(context.Background(), input)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if !out[0].Embedded() || out[1].Embedded() || !out[2].Embedded() {
		t.Fatalf("unexpected embedding state: %v %v %v", out[0].Embedded(), out[1].Embedded(), out[2].Embedded())
	}
	if out[1].Text != "bad one" {
		t.Fatalf("failed chunk must be returned unmodified")
	}
	if input[0].Embedded() {
		t.Fatalf("input slice must not be mutated")
	}
}

func TestEmbedBatchesAtMostFiveConcurrently(t *testing.T) {
	model := &fakeModel{}
	var calls []int
	svc := NewService(model, WithBatchPause(0))

	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "chunk"
	}
	_, err := svc.EmbedWithProgress(context.Background(), chunksOf(texts...), func(done, total int) {
		if total != 12 {
			t.Errorf("unexpected total %d", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("EmbedWithProgress() error = %v", err)
	}
	if model.peak > DefaultBatchSize {
		t.Fatalf("expected at most %d concurrent encodes, got %d", DefaultBatchSize, model.peak)
	}
	want := []int{5, 10, 12}
	if len(calls) != len(want) {
		t.Fatalf("expected progress %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected progress %v, got %v", want, calls)
		}
	}
}

func TestLoadOnceAndRetryAfterFailure(t *testing.T) {
	model := &fakeModel{loadErr: errors.New("weights missing")}
	svc := NewService(model, WithBatchPause(0))

	_, err := svc.Embed(context.Background(), chunksOf("a"))
	if !domain.IsKind(err, domain.ErrEmbeddingModelLoad) {
		t.Fatalf("expected model load error, got %v", err)
	}

	model.loadErr = nil
	for i := 0; i < 3; i++ {
		if _, err := svc.Embed(context.Background(), chunksOf("a")); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
	}
	if got := model.loads.Load(); got != 2 {
		t.Fatalf("expected 2 load attempts, got %d", got)
	}
}

func TestCloseIsFinal(t *testing.T) {
	model := &fakeModel{}
	svc := NewService(model, WithBatchPause(0))
	if _, err := svc.EmbedQuery(context.Background(), "hello"); err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if model.closes.Load() != 1 {
		t.Fatalf("expected model closed once, got %d", model.closes.Load())
	}
	if _, err := svc.EmbedQuery(context.Background(), "hello"); !domain.IsKind(err, domain.ErrEmbeddingModelLoad) {
		t.Fatalf("expected model load error after close, got %v", err)
	}
}

func TestEmbedQueryFailureIsChunkError(t *testing.T) {
	svc := NewService(&fakeModel{failText: "?"}, WithBatchPause(0))
	_, err := svc.EmbedQuery(context.Background(), "what?")
	if !domain.IsKind(err, domain.ErrEmbeddingChunk) {
		t.Fatalf("expected chunk embedding error, got %v", err)
	}
}

func TestEmbedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(NewHashingModel(0))
	if _, err := svc.Embed(ctx, chunksOf("a", "b")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
