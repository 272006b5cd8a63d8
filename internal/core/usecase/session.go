package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// Session holds the single active document of one user together with its
// question history and the last answer.
type Session struct {
	ingest  *IngestDocumentUseCase
	query   *QueryUseCase
	store   ports.ChunkStore
	library ports.DocumentLibrary
	history *QuestionHistory

	// loadMu serializes document replacement.
	loadMu sync.Mutex

	mu              sync.RWMutex
	active          *domain.Document
	activeChunkSize int
	lastAnswer      *domain.Answer
}

func NewSession(
	ingest *IngestDocumentUseCase,
	query *QueryUseCase,
	store ports.ChunkStore,
	library ports.DocumentLibrary,
) *Session {
	return &Session{
		ingest:  ingest,
		query:   query,
		store:   store,
		library: library,
		history: NewQuestionHistory(DefaultHistorySize),
	}
}

func (s *Session) Upload(ctx context.Context, file domain.DocumentFile, preset string) (*domain.Document, error) {
	return s.UploadWithProgress(ctx, file, preset, nil)
}

// UploadWithProgress ingests file and makes it the active document. The
// previous document stays active if ingestion fails.
func (s *Session) UploadWithProgress(
	ctx context.Context,
	file domain.DocumentFile,
	preset string,
	progress func(done, total int),
) (*domain.Document, error) {
	chunkSize, err := domain.ChunkSizeForPreset(preset)
	if err != nil {
		return nil, err
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	doc, err := s.ingest.IngestWithProgress(ctx, file, chunkSize, progress)
	if err != nil {
		return nil, err
	}
	s.activate(ctx, doc, chunkSize)

	out := *doc
	return &out, nil
}

// LoadPreloaded activates a library document. A document with the same name
// and chunk size that is already active is reused.
func (s *Session) LoadPreloaded(ctx context.Context, filename, preset string) (*domain.Document, error) {
	if s.library == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "load preloaded document", errors.New("no document library configured"))
	}
	chunkSize, err := domain.ChunkSizeForPreset(preset)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.active != nil && s.active.Name == filename && s.activeChunkSize == chunkSize {
		out := *s.active
		s.mu.RUnlock()
		return &out, nil
	}
	s.mu.RUnlock()

	file, err := s.library.Open(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("open preloaded document: %w", err)
	}
	return s.Upload(ctx, file, preset)
}

func (s *Session) activate(ctx context.Context, doc *domain.Document, chunkSize int) {
	s.mu.Lock()
	previous := s.active
	s.active = doc
	s.activeChunkSize = chunkSize
	s.lastAnswer = nil
	s.history.Reset()
	s.mu.Unlock()

	if previous != nil {
		s.dropChunks(ctx, previous.ID)
	}
	slog.Info("document_activated",
		"document_id", doc.ID,
		"name", doc.Name,
		"chunks", doc.ChunkCount,
		"embeddings", doc.EmbeddingCount,
	)
}

func (s *Session) Remove(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	previous := s.active
	s.active = nil
	s.activeChunkSize = 0
	s.lastAnswer = nil
	s.history.Reset()
	s.mu.Unlock()

	if previous == nil {
		return domain.ErrNoActiveDocument
	}
	s.dropChunks(ctx, previous.ID)
	return nil
}

func (s *Session) dropChunks(ctx context.Context, documentID string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), documentID); err != nil {
		slog.Warn("document_chunks_delete_failed", "document_id", documentID, "error", err.Error())
	}
}

func (s *Session) Active() (*domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, false
	}
	out := *s.active
	return &out, true
}

func (s *Session) ActiveChunks(ctx context.Context) ([]domain.TextChunk, error) {
	doc, ok := s.Active()
	if !ok {
		return nil, domain.ErrNoActiveDocument
	}
	return s.store.Chunks(ctx, doc.ID)
}

// Ask answers question against the active document. Only answers for the
// document that is still active are recorded; the last one to finish wins.
func (s *Session) Ask(ctx context.Context, question string, topK int) (*domain.Query, *domain.Answer, error) {
	doc, ok := s.Active()
	if !ok {
		return nil, nil, domain.ErrNoActiveDocument
	}

	query, answer, err := s.query.Ask(ctx, doc.ID, question, topK)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	if s.active != nil && s.active.ID == doc.ID {
		s.history.Add(*query)
		s.lastAnswer = answer
	}
	s.mu.Unlock()
	return query, answer, nil
}

func (s *Session) History() []domain.Query {
	return s.history.List()
}

func (s *Session) LastAnswer() (*domain.Answer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastAnswer == nil {
		return nil, false
	}
	out := *s.lastAnswer
	return &out, true
}

// Library lists the preloaded documents, or nothing without a library.
func (s *Session) Library(ctx context.Context) ([]domain.LibraryEntry, error) {
	if s.library == nil {
		return []domain.LibraryEntry{}, nil
	}
	return s.library.List(ctx)
}
