package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

type fakeExtractor struct {
	out domain.Extraction
	err error
}

func (f *fakeExtractor) Extract(_ context.Context, _ domain.DocumentFile) (domain.Extraction, error) {
	return f.out, f.err
}

func TestRouterUnsupportedFormat(t *testing.T) {
	for _, mediaType := range []string{
		"image/png",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"",
	} {
		_, err := NewRouter().Extract(context.Background(), domain.DocumentFile{Name: "x", MediaType: mediaType, Content: []byte("x")})
		if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
			t.Fatalf("%q: expected unsupported format, got %v", mediaType, err)
		}
	}
}

func TestRouterPlainTextWithCharsetParameter(t *testing.T) {
	out, err := NewRouter().Extract(context.Background(), domain.DocumentFile{
		Name:      "notes.txt",
		MediaType: "text/plain; charset=utf-8",
		Content:   []byte("The capital of France is Paris."),
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Text != "The capital of France is Paris." || out.PageCount != 1 {
		t.Fatalf("unexpected extraction %+v", out)
	}
}

func TestRouterWrapsUnclassifiedErrors(t *testing.T) {
	r := NewRouter()
	r.Register("text/csv", &fakeExtractor{err: errors.New("boom")})

	_, err := r.Extract(context.Background(), domain.DocumentFile{Name: "a.csv", MediaType: "text/csv"})
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction failure, got %v", err)
	}

	r.Register("text/csv", &fakeExtractor{err: context.Canceled})
	_, err = r.Extract(context.Background(), domain.DocumentFile{Name: "a.csv", MediaType: "text/csv"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to pass through, got %v", err)
	}
}

func TestDetectMediaType(t *testing.T) {
	cases := []struct {
		name, filename, declared, want string
	}{
		{"declared wins", "a.bin", domain.MediaTypePDF, domain.MediaTypePDF},
		{"octet stream falls back to extension", "report.PDF", "application/octet-stream", domain.MediaTypePDF},
		{"empty falls back to extension", "notes.txt", "", domain.MediaTypePlainText},
		{"docx extension", "a.docx", "", domain.MediaTypeDOCX},
		{"unknown stays generic", "a.xyz", "application/octet-stream", "application/octet-stream"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMediaType(tc.filename, tc.declared); got != tc.want {
				t.Fatalf("DetectMediaType(%q, %q) = %q, want %q", tc.filename, tc.declared, got, tc.want)
			}
		})
	}
}
