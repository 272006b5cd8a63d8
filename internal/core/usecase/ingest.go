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
)

// progressEmbedder is implemented by embedders that report batch progress.
type progressEmbedder interface {
	EmbedWithProgress(ctx context.Context, chunks []domain.TextChunk, progress func(done, total int)) ([]domain.TextChunk, error)
}

type IngestDocumentUseCase struct {
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.ChunkStore
	observer  Observer
}

func NewIngestDocumentUseCase(
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.ChunkStore,
	observer Observer,
) *IngestDocumentUseCase {
	if observer == nil {
		observer = NopObserver{}
	}
	return &IngestDocumentUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		observer:  observer,
	}
}

func (uc *IngestDocumentUseCase) Ingest(ctx context.Context, file domain.DocumentFile, chunkSize int) (*domain.Document, error) {
	return uc.IngestWithProgress(ctx, file, chunkSize, nil)
}

// IngestWithProgress runs extract, chunk, embed and store for one file. The
// document is only visible in the store once every stage has succeeded.
func (uc *IngestDocumentUseCase) IngestWithProgress(
	ctx context.Context,
	file domain.DocumentFile,
	chunkSize int,
	progress func(done, total int),
) (*domain.Document, error) {
	started := time.Now()

	if err := validateFile(file); err != nil {
		uc.observer.IngestFailed("validate")
		return nil, err
	}

	extraction, err := uc.extractor.Extract(ctx, file)
	if err != nil {
		uc.observer.IngestFailed("extract")
		return nil, fmt.Errorf("extract text: %w", err)
	}

	chunks := uc.chunker.Split(extraction.Text, extraction.PageCount, chunkSize)

	chunks, err = uc.embed(ctx, chunks, progress)
	if err != nil {
		uc.observer.IngestFailed("embed")
		return nil, err
	}

	doc := &domain.Document{
		ID:             uuid.NewString(),
		Name:           file.Name,
		Size:           int64(len(file.Content)),
		Type:           file.MediaType,
		PageCount:      extraction.PageCount,
		WordCount:      len(strings.Fields(extraction.Text)),
		ChunkCount:     len(chunks),
		EmbeddingCount: countEmbedded(chunks),
		CreatedAt:      time.Now().UTC(),
	}
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		chunks[i].DocumentID = doc.ID
	}

	if err := uc.store.Put(ctx, doc.ID, chunks); err != nil {
		uc.observer.IngestFailed("store")
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	uc.observer.IngestCompleted(doc.Type, doc.ChunkCount, doc.EmbeddingCount, time.Since(started))
	return doc, nil
}

func (uc *IngestDocumentUseCase) embed(ctx context.Context, chunks []domain.TextChunk, progress func(done, total int)) ([]domain.TextChunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	var (
		embedded []domain.TextChunk
		err      error
	)
	if pe, ok := uc.embedder.(progressEmbedder); ok && progress != nil {
		embedded, err = pe.EmbedWithProgress(ctx, chunks, progress)
	} else {
		embedded, err = uc.embedder.Embed(ctx, chunks)
	}
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embedded) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingChunk,
			"embed chunks",
			fmt.Errorf("chunks mismatch: %d/%d", len(embedded), len(chunks)),
		)
	}
	return embedded, nil
}

func validateFile(file domain.DocumentFile) error {
	if strings.TrimSpace(file.Name) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate document", errors.New("file name is required"))
	}
	if file.Size > domain.MaxDocumentSize || int64(len(file.Content)) > domain.MaxDocumentSize {
		return domain.WrapError(domain.ErrFileTooLarge, "validate document", fmt.Errorf("%s exceeds %d bytes", file.Name, domain.MaxDocumentSize))
	}
	return nil
}

func countEmbedded(chunks []domain.TextChunk) int {
	n := 0
	for _, chunk := range chunks {
		if chunk.Embedded() {
			n++
		}
	}
	return n
}
