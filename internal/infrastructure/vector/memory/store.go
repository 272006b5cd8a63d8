package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ranking"
)

// Store keeps chunks per document in process memory. A document's chunks are
// written once and read by any number of concurrent searches.
type Store struct {
	mu     sync.RWMutex
	chunks map[string][]domain.TextChunk
}

func NewStore() *Store {
	return &Store{chunks: make(map[string][]domain.TextChunk)}
}

func (s *Store) Put(ctx context.Context, documentID string, chunks []domain.TextChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if documentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "put chunks", errors.New("document id is required"))
	}

	stored := make([]domain.TextChunk, len(chunks))
	copy(stored, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chunks[documentID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "put chunks", fmt.Errorf("document %s already stored", documentID))
	}
	s.chunks[documentID] = stored
	return nil
}

func (s *Store) Chunks(ctx context.Context, documentID string) ([]domain.TextChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, ok := s.chunks[documentID]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get chunks", fmt.Errorf("document %s", documentID))
	}
	out := make([]domain.TextChunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// Search ranks the document's embedded chunks by cosine similarity to the
// query vector. Unembedded chunks are skipped.
func (s *Store) Search(ctx context.Context, documentID string, queryVector []float32, topK int) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	chunks, ok := s.chunks[documentID]
	s.mu.RUnlock()

	if !ok || len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyCorpus, "search chunks", fmt.Errorf("no chunks for document %s", documentID))
	}
	return ranking.Rank(queryVector, chunks, topK), nil
}
