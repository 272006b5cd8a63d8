package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const (
	documentPart = "word/document.xml"
	wordsPerPage = 500
	// maxPartSize bounds the decompressed body to guard against zip bombs.
	maxPartSize = 64 << 20
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the raw text of the main document part. Paragraphs are
// separated by a blank line; styling is ignored.
func (e *Extractor) Extract(ctx context.Context, file domain.DocumentFile) (domain.Extraction, error) {
	archive, err := zip.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "open docx", err)
	}

	var part *zip.File
	for _, f := range archive.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "open docx", fmt.Errorf("%s not found in %s", documentPart, file.Name))
	}

	rc, err := part.Open()
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "open docx part", err)
	}
	defer rc.Close()

	text, err := rawText(ctx, io.LimitReader(rc, maxPartSize))
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "parse docx", err)
	}

	return domain.Extraction{
		Text:      text,
		PageCount: EstimatePages(text),
	}, nil
}

func rawText(ctx context.Context, r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		out    strings.Builder
		inText bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				out.Write(el)
			}
		}
	}
	return out.String(), nil
}

// EstimatePages returns ceil(words/500), at least 1.
func EstimatePages(text string) int {
	words := len(strings.Fields(text))
	pages := (words + wordsPerPage - 1) / wordsPerPage
	if pages < 1 {
		return 1
	}
	return pages
}
