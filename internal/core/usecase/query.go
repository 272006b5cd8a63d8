package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/core/ranking"
)

type QueryUseCase struct {
	embedder  ports.Embedder
	store     ports.ChunkStore
	generator ports.AnswerGenerator
	observer  Observer
}

func NewQueryUseCase(
	embedder ports.Embedder,
	store ports.ChunkStore,
	generator ports.AnswerGenerator,
	observer Observer,
) *QueryUseCase {
	if observer == nil {
		observer = NopObserver{}
	}
	return &QueryUseCase{
		embedder:  embedder,
		store:     store,
		generator: generator,
		observer:  observer,
	}
}

// Ask retrieves the topK chunks closest to the question and has the generator
// answer from them. An empty retrieval still reaches the generator.
func (uc *QueryUseCase) Ask(
	ctx context.Context,
	documentID string,
	question string,
	topK int,
) (*domain.Query, *domain.Answer, error) {
	started := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		uc.observer.QueryFailed("validate")
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "ask question", errors.New("question is empty"))
	}
	if topK <= 0 {
		topK = ranking.DefaultTopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		uc.observer.QueryFailed("embed")
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := uc.store.Search(ctx, documentID, queryVector, topK)
	if err != nil {
		uc.observer.QueryFailed("search")
		return nil, nil, fmt.Errorf("search chunks: %w", err)
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, chunks)
	if err != nil {
		uc.observer.QueryFailed("generate")
		return nil, nil, fmt.Errorf("generate answer: %w", err)
	}

	now := time.Now().UTC()
	query := &domain.Query{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Text:       question,
		CreatedAt:  now,
	}
	sources := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, domain.NewSource(chunk))
	}
	answer := &domain.Answer{
		ID:        uuid.NewString(),
		QueryID:   query.ID,
		Text:      answerText,
		Sources:   sources,
		CreatedAt: now,
	}

	uc.observer.QueryCompleted(len(chunks), time.Since(started))
	return query, answer, nil
}
