package embedding

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchPause = 10 * time.Millisecond
)

var errServiceClosed = errors.New("embedding service closed")

type Option func(*Service)

func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithBatchPause(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchPause = d
		}
	}
}

// Service turns text into unit vectors using a lazily loaded model.
type Service struct {
	model      ports.EmbeddingModel
	batchSize  int
	batchPause time.Duration

	mu     sync.Mutex
	loaded bool
	closed bool
}

func NewService(model ports.EmbeddingModel, opts ...Option) *Service {
	s := &Service{
		model:      model,
		batchSize:  DefaultBatchSize,
		batchPause: DefaultBatchPause,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ModelName() string {
	return s.model.Name()
}

// Load loads the model once. Concurrent callers wait for the same load. A failed
// load is not remembered, so the next call tries again.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.WrapError(domain.ErrEmbeddingModelLoad, "load embedding model", errServiceClosed)
	}
	if s.loaded {
		return nil
	}

	started := time.Now()
	if err := s.model.Load(ctx); err != nil {
		return domain.WrapError(domain.ErrEmbeddingModelLoad, "load embedding model", err)
	}
	s.loaded = true
	slog.Info("embedding_model_loaded", "model", s.model.Name(), "duration_ms", time.Since(started).Milliseconds())
	return nil
}

// Close releases the model. The service cannot be used afterwards.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.loaded {
		return nil
	}
	s.loaded = false
	return s.model.Close()
}

func (s *Service) Embed(ctx context.Context, chunks []domain.TextChunk) ([]domain.TextChunk, error) {
	return s.EmbedWithProgress(ctx, chunks, nil)
}

// EmbedWithProgress embeds chunks in batches, in document order. A chunk that
// fails to encode is returned without an embedding. progress, when set, is
// called after every batch.
func (s *Service) EmbedWithProgress(ctx context.Context, chunks []domain.TextChunk, progress func(done, total int)) ([]domain.TextChunk, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.TextChunk, len(chunks))
	copy(out, chunks)

	for start := 0; start < len(out); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+s.batchSize, len(out))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				vector, err := s.encode(ctx, out[i].Text)
				if err != nil {
					slog.Warn("embedding_chunk_failed",
						"chunk_id", out[i].ID,
						"location", out[i].Metadata.Location,
						"error", err.Error(),
					)
					out[i].Embedding = nil
					return
				}
				out[i].Embedding = vector
			}(i)
		}
		wg.Wait()

		if progress != nil {
			progress(end, len(out))
		}

		if end < len(out) && s.batchPause > 0 {
			timer := time.NewTimer(s.batchPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds question text through the same path as document chunks.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := s.Embed(ctx, []domain.TextChunk{{Text: text}})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 || !out[0].Embedded() {
		return nil, domain.WrapError(domain.ErrEmbeddingChunk, "embed query", errors.New("no vector produced for query"))
	}
	return out[0].Embedding, nil
}

func (s *Service) encode(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.model.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, errors.New("empty vector")
	}
	normalized, ok := normalize(vector)
	if !ok {
		return nil, errors.New("vector has zero or non-finite norm")
	}
	return normalized, nil
}

func normalize(vector []float32) ([]float32, bool) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out, true
}
