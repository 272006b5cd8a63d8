package ports

import (
	"context"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// DocumentSession is the inbound contract for the single active document.
type DocumentSession interface {
	Upload(ctx context.Context, file domain.DocumentFile, preset string) (*domain.Document, error)
	LoadPreloaded(ctx context.Context, filename, preset string) (*domain.Document, error)
	Remove(ctx context.Context) error
	Active() (*domain.Document, bool)
	ActiveChunks(ctx context.Context) ([]domain.TextChunk, error)
	Library(ctx context.Context) ([]domain.LibraryEntry, error)
}

// QuestionAnswerer is the inbound contract for retrieval-augmented answers.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, topK int) (*domain.Query, *domain.Answer, error)
	History() []domain.Query
	LastAnswer() (*domain.Answer, bool)
}

// SessionService is what the HTTP, MCP and CLI surfaces drive.
type SessionService interface {
	DocumentSession
	QuestionAnswerer
}
