package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func documentXML(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>`)
		b.WriteString(p)
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func TestExtractParagraphs(t *testing.T) {
	content := buildDocx(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   documentXML("The capital of France is Paris.", "Second paragraph."),
	})

	out, err := NewExtractor().Extract(context.Background(), domain.DocumentFile{Name: "a.docx", MediaType: domain.MediaTypeDOCX, Content: content})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := "The capital of France is Paris.\n\nSecond paragraph.\n\n"
	if out.Text != want {
		t.Fatalf("unexpected text %q", out.Text)
	}
	if out.PageCount != 1 {
		t.Fatalf("expected 1 page, got %d", out.PageCount)
	}
}

func TestExtractHandlesRunsTabsAndBreaks(t *testing.T) {
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>one</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">two </w:t></w:r><w:r><w:br/><w:t>three</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	content := buildDocx(t, map[string]string{"word/document.xml": body})

	out, err := NewExtractor().Extract(context.Background(), domain.DocumentFile{Name: "runs.docx", Content: content})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Text != "one\ttwo \nthree\n\n" {
		t.Fatalf("unexpected text %q", out.Text)
	}
}

func TestEstimatePagesByWords(t *testing.T) {
	if got := EstimatePages(strings.Repeat("word ", 1001)); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	if got := EstimatePages(""); got != 1 {
		t.Fatalf("expected 1 page, got %d", got)
	}
}

func TestExtractFailures(t *testing.T) {
	cases := map[string][]byte{
		"not a zip":     []byte("plain bytes"),
		"missing part":  buildDocx(t, map[string]string{"word/styles.xml": "<w:styles/>"}),
		"malformed xml": buildDocx(t, map[string]string{"word/document.xml": "<w:document><w:body><w:p>"}),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewExtractor().Extract(context.Background(), domain.DocumentFile{Name: "bad.docx", Content: content})
			if !domain.IsKind(err, domain.ErrExtractionFailed) {
				t.Fatalf("expected extraction failure, got %v", err)
			}
		})
	}
}
