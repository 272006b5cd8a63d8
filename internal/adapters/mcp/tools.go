package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/storage/localfs"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("load_document",
		mcp.WithDescription("Load a document and make it the active one. Pass either a library name or a local file path."),
		mcp.WithString("name", mcp.Description("file name of a preloaded library document, e.g. great_gatsby.txt")),
		mcp.WithString("path", mcp.Description("path of a local .txt, .pdf or .docx file")),
		mcp.WithString("chunk_size", mcp.Description("chunk size preset"), mcp.Enum("small", "medium", "large")),
	), s.handleLoadDocument)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a question using only the active document."),
		mcp.WithString("question", mcp.Required(), mcp.Description("the question to answer")),
		mcp.WithNumber("top_k", mcp.Description("number of chunks to retrieve"), mcp.Min(1), mcp.Max(20)),
	), s.handleAskQuestion)

	s.mcp.AddTool(mcp.NewTool("document_info",
		mcp.WithDescription("Describe the active document: pages, words, chunks and embeddings."),
	), s.handleDocumentInfo)

	s.mcp.AddTool(mcp.NewTool("question_history",
		mcp.WithDescription("List up to five recent questions, newest first."),
	), s.handleQuestionHistory)

	s.mcp.AddTool(mcp.NewTool("list_library",
		mcp.WithDescription("List the preloaded documents that load_document accepts by name."),
	), s.handleListLibrary)
}

func (s *Server) handleLoadDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	path := strings.TrimSpace(req.GetString("path", ""))
	preset := req.GetString("chunk_size", "")

	var (
		doc *domain.Document
		err error
	)
	switch {
	case name != "" && path != "":
		return mcp.NewToolResultError("Pass either name or path, not both."), nil
	case name != "":
		doc, err = s.session.LoadPreloaded(ctx, name, preset)
	case path != "":
		var file domain.DocumentFile
		file, err = localfs.ReadDocumentFile(path)
		if err == nil {
			doc, err = s.session.Upload(ctx, file, preset)
		}
	default:
		return mcp.NewToolResultError("name or path is required."), nil
	}
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(doc)
}

func (s *Server) handleAskQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := req.GetInt("top_k", s.topK)

	_, answer, err := s.session.Ask(ctx, question, topK)
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Sources) > 0 {
		b.WriteString("\n\nSources:")
		for _, src := range answer.Sources {
			page := "?"
			if src.PageNumber != nil {
				page = fmt.Sprint(*src.PageNumber)
			}
			fmt.Fprintf(&b, "\n- page %s: %s", page, preview(src.Text, 160))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleDocumentInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, ok := s.session.Active()
	if !ok {
		return toolError(domain.ErrNoActiveDocument), nil
	}
	return jsonResult(doc)
}

func (s *Server) handleQuestionHistory(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history := s.session.History()
	if len(history) == 0 {
		return mcp.NewToolResultText("No questions yet."), nil
	}
	lines := make([]string, 0, len(history))
	for i, q := range history {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, q.Text))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleListLibrary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.session.Library(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entries)
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(domain.UserMessage(err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
