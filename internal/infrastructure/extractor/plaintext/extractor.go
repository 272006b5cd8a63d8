package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const linesPerPage = 40

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the file content as-is. The page count is estimated from
// the number of lines.
func (e *Extractor) Extract(_ context.Context, file domain.DocumentFile) (domain.Extraction, error) {
	raw := bytes.TrimPrefix(file.Content, utf8BOM)
	if !utf8.Valid(raw) {
		return domain.Extraction{}, domain.WrapError(
			domain.ErrExtractionFailed,
			"extract plain text",
			fmt.Errorf("invalid utf-8 encoding in %s", file.Name),
		)
	}

	text := string(raw)
	return domain.Extraction{
		Text:      text,
		PageCount: EstimatePages(text),
	}, nil
}

// EstimatePages returns ceil(lines/40), at least 1.
func EstimatePages(text string) int {
	lines := strings.Count(text, "\n") + 1
	pages := (lines + linesPerPage - 1) / linesPerPage
	if pages < 1 {
		return 1
	}
	return pages
}
