package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const pageSeparator = "\n\n"

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the text of every page in order. The page count comes from the
// document itself.
func (e *Extractor) Extract(ctx context.Context, file domain.DocumentFile) (out domain.Extraction, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			out = domain.Extraction{}
			err = domain.WrapError(domain.ErrExtractionFailed, "extract pdf", fmt.Errorf("malformed pdf %s: %v", file.Name, r))
		}
	}()

	if len(file.Content) == 0 {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract pdf", errors.New("empty file"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "open pdf", err)
	}

	pageCount := reader.NumPage()
	var text strings.Builder
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}

		page := reader.Page(i)
		if !page.V.IsNull() {
			pageText, err := page.GetPlainText(nil)
			if err != nil {
				return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "read pdf page", fmt.Errorf("page %d: %w", i, err))
			}
			text.WriteString(pageText)
		}
		text.WriteString(pageSeparator)
	}

	if pageCount < 1 {
		pageCount = 1
	}
	return domain.Extraction{
		Text:      text.String(),
		PageCount: pageCount,
	}, nil
}
