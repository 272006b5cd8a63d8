package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type extractorFake struct {
	out domain.Extraction
	err error
}

func (f *extractorFake) Extract(context.Context, domain.DocumentFile) (domain.Extraction, error) {
	return f.out, f.err
}

// chunkerFake emits one chunk per non-empty line.
type chunkerFake struct {
	gotSize int
}

func (f *chunkerFake) Split(text string, pageCount int, chunkSize int) []domain.TextChunk {
	f.gotSize = chunkSize
	var out []domain.TextChunk
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, domain.TextChunk{
			Text:     line,
			Metadata: domain.ChunkMetadata{PageNumber: domain.IntPtr(1), Location: domain.IntPtr(len(out))},
		})
	}
	return out
}

// embedderFake embeds every chunk except those containing skip. Query vectors
// come from queryVector.
type embedderFake struct {
	skip        string
	err         error
	queryErr    error
	queryVector []float32
	progress    []int
}

func (f *embedderFake) Embed(ctx context.Context, chunks []domain.TextChunk) ([]domain.TextChunk, error) {
	return f.EmbedWithProgress(ctx, chunks, nil)
}

func (f *embedderFake) EmbedWithProgress(_ context.Context, chunks []domain.TextChunk, progress func(done, total int)) ([]domain.TextChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.TextChunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		if f.skip != "" && strings.Contains(out[i].Text, f.skip) {
			continue
		}
		out[i].Embedding = []float32{1, 0}
	}
	if progress != nil {
		progress(len(out), len(out))
		f.progress = append(f.progress, len(out))
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryVector != nil {
		return f.queryVector, nil
	}
	return []float32{1, 0}, nil
}

type storeFake struct {
	mu      sync.Mutex
	docs    map[string][]domain.TextChunk
	deleted []string
	putErr  error
	results []domain.ScoredChunk
	topK    int
}

func newStoreFake() *storeFake {
	return &storeFake{docs: make(map[string][]domain.TextChunk)}
}

func (f *storeFake) Put(_ context.Context, documentID string, chunks []domain.TextChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.docs[documentID] = chunks
	return nil
}

func (f *storeFake) Chunks(_ context.Context, documentID string) ([]domain.TextChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chunks, ok := f.docs[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return chunks, nil
}

func (f *storeFake) Delete(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, documentID)
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *storeFake) Search(_ context.Context, documentID string, _ []float32, topK int) ([]domain.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topK = topK
	chunks, ok := f.docs[documentID]
	if !ok || len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyCorpus, "search", errors.New("no chunks"))
	}
	if f.results != nil {
		return f.results, nil
	}
	var out []domain.ScoredChunk
	for _, chunk := range chunks {
		if chunk.Embedded() && len(out) < topK {
			out = append(out, domain.ScoredChunk{Chunk: chunk, Score: 0.5})
		}
	}
	return out, nil
}

type observerFake struct {
	NopObserver
	completed int
	failed    []string
}

func (o *observerFake) IngestCompleted(string, int, int, time.Duration) { o.completed++ }
func (o *observerFake) IngestFailed(stage string)                       { o.failed = append(o.failed, stage) }

func textFile(name, content string) domain.DocumentFile {
	return domain.DocumentFile{Name: name, MediaType: domain.MediaTypePlainText, Size: int64(len(content)), Content: []byte(content)}
}

func TestIngestBuildsDocumentAndStoresChunks(t *testing.T) {
	text := "The capital of France is Paris.\nMount Everest is tall.\nLeaves use light."
	store := newStoreFake()
	chunker := &chunkerFake{}
	observer := &observerFake{}
	uc := NewIngestDocumentUseCase(
		&extractorFake{out: domain.Extraction{Text: text, PageCount: 1}},
		chunker,
		&embedderFake{skip: "Everest"},
		store,
		observer,
	)

	doc, err := uc.Ingest(context.Background(), textFile("facts.txt", text), 500)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.ID == "" || doc.Name != "facts.txt" || doc.Type != domain.MediaTypePlainText {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.PageCount != 1 || doc.WordCount != 13 || doc.ChunkCount != 3 || doc.EmbeddingCount != 2 {
		t.Fatalf("unexpected counts %+v", doc)
	}
	if chunker.gotSize != 500 {
		t.Fatalf("expected chunk size to reach the chunker, got %d", chunker.gotSize)
	}

	stored := store.docs[doc.ID]
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored chunks, got %d", len(stored))
	}
	seen := map[string]bool{}
	for _, chunk := range stored {
		if chunk.ID == "" || seen[chunk.ID] || chunk.DocumentID != doc.ID {
			t.Fatalf("chunk ids must be unique and linked to the document: %+v", chunk)
		}
		seen[chunk.ID] = true
	}
	if observer.completed != 1 {
		t.Fatalf("expected one completed ingest")
	}
}

func TestIngestReportsProgress(t *testing.T) {
	embedder := &embedderFake{}
	uc := NewIngestDocumentUseCase(&extractorFake{out: domain.Extraction{Text: "a\nb", PageCount: 1}}, &chunkerFake{}, embedder, newStoreFake(), nil)

	var calls int
	if _, err := uc.IngestWithProgress(context.Background(), textFile("a.txt", "a\nb"), 0, func(done, total int) { calls++ }); err != nil {
		t.Fatalf("IngestWithProgress() error = %v", err)
	}
	if calls != 1 || len(embedder.progress) != 1 {
		t.Fatalf("expected progress to be forwarded")
	}
}

func TestIngestEmptyTextProducesEmptyDocument(t *testing.T) {
	store := newStoreFake()
	uc := NewIngestDocumentUseCase(&extractorFake{out: domain.Extraction{Text: "", PageCount: 1}}, &chunkerFake{}, &embedderFake{}, store, nil)

	doc, err := uc.Ingest(context.Background(), textFile("empty.txt", ""), 0)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.ChunkCount != 0 || doc.WordCount != 0 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if _, ok := store.docs[doc.ID]; !ok {
		t.Fatalf("empty document must still be stored")
	}
}

func TestIngestFailures(t *testing.T) {
	cases := []struct {
		name      string
		file      domain.DocumentFile
		extractor *extractorFake
		embedder  *embedderFake
		putErr    error
		kind      error
		stage     string
	}{
		{
			name:      "unsupported format",
			file:      textFile("a.png", "x"),
			extractor: &extractorFake{err: domain.WrapError(domain.ErrUnsupportedFormat, "extract", errors.New("image/png"))},
			embedder:  &embedderFake{},
			kind:      domain.ErrUnsupportedFormat,
			stage:     "extract",
		},
		{
			name:      "model load",
			file:      textFile("a.txt", "x"),
			extractor: &extractorFake{out: domain.Extraction{Text: "x", PageCount: 1}},
			embedder:  &embedderFake{err: domain.WrapError(domain.ErrEmbeddingModelLoad, "load", errors.New("missing"))},
			kind:      domain.ErrEmbeddingModelLoad,
			stage:     "embed",
		},
		{
			name:      "too large",
			file:      domain.DocumentFile{Name: "big.txt", Size: domain.MaxDocumentSize + 1},
			extractor: &extractorFake{},
			embedder:  &embedderFake{},
			kind:      domain.ErrFileTooLarge,
			stage:     "validate",
		},
		{
			name:      "store",
			file:      textFile("a.txt", "x"),
			extractor: &extractorFake{out: domain.Extraction{Text: "x", PageCount: 1}},
			embedder:  &embedderFake{},
			putErr:    domain.WrapError(domain.ErrInvalidInput, "put", errors.New("duplicate")),
			kind:      domain.ErrInvalidInput,
			stage:     "store",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStoreFake()
			store.putErr = tc.putErr
			observer := &observerFake{}
			uc := NewIngestDocumentUseCase(tc.extractor, &chunkerFake{}, tc.embedder, store, observer)

			_, err := uc.Ingest(context.Background(), tc.file, 0)
			if !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if len(observer.failed) != 1 || observer.failed[0] != tc.stage {
				t.Fatalf("expected failure at %s, got %v", tc.stage, observer.failed)
			}
		})
	}
}
