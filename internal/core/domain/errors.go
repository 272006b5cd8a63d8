package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrExtractionFailed   = errors.New("extraction failed")
	ErrEmbeddingModelLoad = errors.New("embedding model load failed")
	ErrEmbeddingChunk     = errors.New("embedding chunk failed")
	ErrEmptyCorpus        = errors.New("empty corpus")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrFileTooLarge       = errors.New("file too large")
	ErrNoActiveDocument   = errors.New("no active document")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// UserMessage renders err as the single human-readable line shown to a user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrUnsupportedFormat):
		return "This file type is not supported. Upload a plain text, PDF or Word document."
	case IsKind(err, ErrFileTooLarge):
		return "The file is larger than the 20 MB limit."
	case IsKind(err, ErrExtractionFailed):
		return "The document could not be read. It may be corrupt or password protected."
	case IsKind(err, ErrEmbeddingModelLoad):
		return "The embedding model could not be loaded. Try again."
	case IsKind(err, ErrEmbeddingChunk):
		return "The question could not be processed. Try rephrasing it."
	case IsKind(err, ErrEmptyCorpus):
		return "The document has no text to search."
	case IsKind(err, ErrGenerationFailed):
		return "Failed to generate answer from AI model."
	case IsKind(err, ErrNoActiveDocument):
		return "Load a document before asking questions."
	case IsKind(err, ErrDocumentNotFound):
		return "Document not found."
	default:
		return err.Error()
	}
}
