package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor"
	"github.com/kirillkom/docqa/internal/infrastructure/render/markdown"
	"github.com/kirillkom/docqa/internal/observability/metrics"
)

const (
	// multipartOverhead leaves room for boundaries and the chunk_size field.
	multipartOverhead = 1 << 20
	backpressureWait  = 250 * time.Millisecond
)

type Router struct {
	cfg       config.Config
	session   ports.SessionService
	library   ports.DocumentLibrary
	completer ports.ChatCompleter
	metrics   *metrics.HTTPServerMetrics
	contract  *apiContract
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// WithGenerateUpstream enables the /api/generate proxy.
func WithGenerateUpstream(completer ports.ChatCompleter) RouterOption {
	return func(rt *Router) {
		rt.completer = completer
	}
}

func NewRouter(
	cfg config.Config,
	session ports.SessionService,
	library ports.DocumentLibrary,
	opts ...RouterOption,
) (*Router, error) {
	contract, err := loadContract(context.Background())
	if err != nil {
		return nil, err
	}
	rt := &Router{
		cfg:      cfg,
		session:  session,
		library:  library,
		contract: contract,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", rt.contract.serve)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/active", rt.activeDocument)
	mux.HandleFunc("DELETE /v1/documents/active", rt.removeDocument)
	mux.HandleFunc("GET /v1/documents/active/chunks", rt.activeChunks)

	mux.HandleFunc("GET /v1/library", rt.listLibrary)
	mux.HandleFunc("POST /v1/library/{name}", rt.loadLibraryDocument)
	mux.HandleFunc("GET /documents/{name}", rt.libraryFile)

	mux.HandleFunc("POST /v1/questions", rt.askQuestion)
	mux.HandleFunc("GET /v1/questions/history", rt.questionHistory)
	mux.HandleFunc("GET /v1/questions/last", rt.lastAnswer)

	mux.HandleFunc("POST /api/generate", rt.generate)

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, backpressureWait)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("docqa-api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxDocumentSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.writeDomainError(w, r, domain.WrapError(domain.ErrFileTooLarge, "upload", err))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, domain.MaxDocumentSize+1))
	if err != nil {
		rt.writeDomainError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}
	docFile := domain.DocumentFile{
		Name:      header.Filename,
		MediaType: extractor.DetectMediaType(header.Filename, header.Header.Get("Content-Type")),
		Size:      int64(len(content)),
		Content:   content,
	}
	if header.Size > docFile.Size {
		docFile.Size = header.Size
	}

	doc, err := rt.session.Upload(r.Context(), docFile, r.FormValue("chunk_size"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.ObserveUpload(doc.Size)
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) activeDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := rt.session.Active()
	if !ok {
		rt.writeDomainError(w, r, domain.ErrNoActiveDocument)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) removeDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.session.Remove(r.Context()); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chunkView struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	PageNumber *int   `json:"page_number,omitempty"`
	Location   *int   `json:"location,omitempty"`
	Embedded   bool   `json:"embedded"`
}

func (rt *Router) activeChunks(w http.ResponseWriter, r *http.Request) {
	var limit, offset *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		rt.writeDomainError(w, r, domain.WrapError(domain.ErrInvalidInput, "limit", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		rt.writeDomainError(w, r, domain.WrapError(domain.ErrInvalidInput, "offset", err))
		return
	}
	if (limit != nil && *limit < 1) || (offset != nil && *offset < 0) {
		rt.writeDomainError(w, r, domain.WrapError(domain.ErrInvalidInput, "paging", errors.New("limit must be positive and offset not negative")))
		return
	}

	chunks, err := rt.session.ActiveChunks(r.Context())
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}

	start := 0
	if offset != nil {
		start = min(*offset, len(chunks))
	}
	end := len(chunks)
	if limit != nil {
		end = min(start+*limit, len(chunks))
	}
	views := make([]chunkView, 0, end-start)
	for _, chunk := range chunks[start:end] {
		views = append(views, chunkView{
			ID:         chunk.ID,
			Text:       chunk.Text,
			PageNumber: chunk.Metadata.PageNumber,
			Location:   chunk.Metadata.Location,
			Embedded:   chunk.Embedded(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(chunks), "chunks": views})
}

func (rt *Router) listLibrary(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.session.Library(r.Context())
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": entries})
}

func (rt *Router) loadLibraryDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChunkSize string `json:"chunk_size"`
	}
	if err := rt.contract.decodeBody(r, "LoadRequest", true, &req); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	doc, err := rt.session.LoadPreloaded(r.Context(), r.PathValue("name"), req.ChunkSize)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) libraryFile(w http.ResponseWriter, r *http.Request) {
	if rt.library == nil {
		rt.writeDomainError(w, r, domain.ErrDocumentNotFound)
		return
	}
	file, err := rt.library.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	contentType := file.MediaType
	if contentType == domain.MediaTypePlainText {
		contentType += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

type answerView struct {
	ID        string          `json:"id"`
	QueryID   string          `json:"query_id"`
	Text      string          `json:"text"`
	HTML      string          `json:"html"`
	Sources   []domain.Source `json:"sources"`
	CreatedAt time.Time       `json:"created_at"`
}

func newAnswerView(answer *domain.Answer) answerView {
	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return answerView{
		ID:        answer.ID,
		QueryID:   answer.QueryID,
		Text:      answer.Text,
		HTML:      markdown.ToSafeHTML(answer.Text),
		Sources:   sources,
		CreatedAt: answer.CreatedAt,
	}
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := rt.contract.decodeBody(r, "QuestionRequest", false, &req); err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = rt.cfg.TopK
	}

	query, answer, err := rt.session.Ask(r.Context(), req.Question, topK)
	if err != nil {
		rt.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"answer": newAnswerView(answer),
	})
}

func (rt *Router) questionHistory(w http.ResponseWriter, _ *http.Request) {
	questions := rt.session.History()
	if questions == nil {
		questions = []domain.Query{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (rt *Router) lastAnswer(w http.ResponseWriter, _ *http.Request) {
	answer, ok := rt.session.LastAnswer()
	if !ok {
		writeError(w, http.StatusNotFound, "No question has been answered yet.")
		return
	}
	writeJSON(w, http.StatusOK, newAnswerView(answer))
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeError(w, status, domain.UserMessage(err))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
