package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor"
)

// ReadDocumentFile loads a local document for ingestion. Files over the
// upload limit are rejected before they are read.
func ReadDocumentFile(path string) (domain.DocumentFile, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DocumentFile{}, domain.WrapError(domain.ErrDocumentNotFound, "open document file", err)
	}
	if err != nil {
		return domain.DocumentFile{}, fmt.Errorf("open document file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return domain.DocumentFile{}, fmt.Errorf("stat document file: %w", err)
	}
	if info.IsDir() {
		return domain.DocumentFile{}, domain.WrapError(domain.ErrInvalidInput, "open document file", fmt.Errorf("%s is a directory", path))
	}
	if info.Size() > domain.MaxDocumentSize {
		return domain.DocumentFile{}, domain.WrapError(domain.ErrFileTooLarge, "open document file", fmt.Errorf("%s has %d bytes", path, info.Size()))
	}

	content, err := io.ReadAll(io.LimitReader(f, domain.MaxDocumentSize+1))
	if err != nil {
		return domain.DocumentFile{}, fmt.Errorf("read document file: %w", err)
	}
	name := filepath.Base(path)
	return domain.DocumentFile{
		Name:      name,
		MediaType: extractor.DetectMediaType(name, ""),
		Size:      int64(len(content)),
		Content:   content,
	}, nil
}
