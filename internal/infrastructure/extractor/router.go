package extractor

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor/plaintext"
)

const mediaTypeOctetStream = "application/octet-stream"

var extensionMediaTypes = map[string]string{
	".txt":  domain.MediaTypePlainText,
	".text": domain.MediaTypePlainText,
	".pdf":  domain.MediaTypePDF,
	".docx": domain.MediaTypeDOCX,
}

// Router dispatches extraction by media type.
type Router struct {
	byType map[string]ports.TextExtractor
}

func NewRouter() *Router {
	return &Router{
		byType: map[string]ports.TextExtractor{
			domain.MediaTypePlainText: plaintext.NewExtractor(),
			domain.MediaTypePDF:       pdf.NewExtractor(),
			domain.MediaTypeDOCX:      docx.NewExtractor(),
		},
	}
}

// Register overrides or adds the extractor for a media type.
func (r *Router) Register(mediaType string, extractor ports.TextExtractor) {
	r.byType[normalizeMediaType(mediaType)] = extractor
}

func (r *Router) Extract(ctx context.Context, file domain.DocumentFile) (domain.Extraction, error) {
	mediaType := normalizeMediaType(file.MediaType)
	extractor, ok := r.byType[mediaType]
	if !ok {
		return domain.Extraction{}, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"extract text",
			fmt.Errorf("media type %q of %s", file.MediaType, file.Name),
		)
	}

	out, err := extractor.Extract(ctx, file)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || domain.IsKind(err, domain.ErrExtractionFailed) {
			return domain.Extraction{}, err
		}
		return domain.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract text", err)
	}
	return out, nil
}

// DetectMediaType keeps a declared media type unless it is missing or
// generic, in which case the file extension decides.
func DetectMediaType(filename, declared string) string {
	declared = normalizeMediaType(declared)
	if declared != "" && declared != mediaTypeOctetStream {
		return declared
	}
	if byExt, ok := extensionMediaTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return declared
}

func normalizeMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return parsed
}
