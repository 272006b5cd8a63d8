package ports

import (
	"context"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// TextExtractor turns a raw document file into plain text plus a page count.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.DocumentFile) (domain.Extraction, error)
}

// Chunker splits extracted text into overlapping chunks annotated with page metadata.
// A chunkSize <= 0 selects the chunker default.
type Chunker interface {
	Split(text string, pageCount int, chunkSize int) []domain.TextChunk
}

// EmbeddingModel is a feature-extraction backend producing one pooled vector per text.
type EmbeddingModel interface {
	Name() string
	Load(ctx context.Context) error
	Encode(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// Embedder attaches embeddings to chunks and embeds query text through the same path.
type Embedder interface {
	Embed(ctx context.Context, chunks []domain.TextChunk) ([]domain.TextChunk, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkStore owns the chunks of every live document, keyed by document id.
type ChunkStore interface {
	Put(ctx context.Context, documentID string, chunks []domain.TextChunk) error
	Chunks(ctx context.Context, documentID string) ([]domain.TextChunk, error)
	Delete(ctx context.Context, documentID string) error
	Search(ctx context.Context, documentID string, queryVector []float32, topK int) ([]domain.ScoredChunk, error)
}

// ChatCompleter sends a chat request to a generation endpoint.
type ChatCompleter interface {
	Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

// AnswerGenerator creates the final user-facing answer from retrieved chunks.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, error)
}

// DocumentLibrary serves preloaded documents.
type DocumentLibrary interface {
	List(ctx context.Context) ([]domain.LibraryEntry, error)
	Open(ctx context.Context, filename string) (domain.DocumentFile, error)
}
