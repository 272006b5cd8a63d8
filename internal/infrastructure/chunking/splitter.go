package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// charsPerWord converts the character overlap into a word count. The overlap
// is therefore approximate, not character exact.
const charsPerWord = 5

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = domain.DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

type textNode struct {
	text       string
	pageNumber int
}

// Split segments text into line nodes, then packs them into chunks of roughly
// chunkSize characters. A node is never split, so one chunk may exceed the size.
func (s *Splitter) Split(text string, pageCount int, chunkSize int) []domain.TextChunk {
	if chunkSize <= 0 {
		chunkSize = s.ChunkSize
	}
	nodes := buildNodes(text, pageCount)
	if len(nodes) == 0 {
		return nil
	}

	overlapWords := s.Overlap / charsPerWord
	out := make([]domain.TextChunk, 0, len(text)/chunkSize+1)

	var (
		current     string
		currentLen  int
		currentPage = nodes[0].pageNumber
	)

	emit := func() {
		trimmed := strings.TrimSpace(current)
		if trimmed == "" {
			return
		}
		out = append(out, domain.TextChunk{
			Text: trimmed,
			Metadata: domain.ChunkMetadata{
				PageNumber: domain.IntPtr(currentPage),
				Location:   domain.IntPtr(len(out)),
			},
		})
	}

	for _, node := range nodes {
		nodeLen := utf8.RuneCountInString(node.text)
		if currentLen+nodeLen > chunkSize && currentLen > 0 {
			emit()
			current = joinNonEmpty(tailWords(current, overlapWords), node.text)
			currentLen = utf8.RuneCountInString(current)
			currentPage = node.pageNumber
			continue
		}

		if currentLen > 0 {
			current += " "
			currentLen++
		}
		current += node.text
		currentLen += nodeLen
		if node.pageNumber < currentPage {
			currentPage = node.pageNumber
		}
	}

	emit()
	return out
}

// buildNodes splits text into trimmed non-empty lines with a page number
// estimated by spreading lines uniformly over pageCount pages.
func buildNodes(text string, pageCount int) []textNode {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if pageCount < 1 {
		pageCount = 1
	}

	lines := strings.Split(text, "\n")
	linesPerPage := (len(lines) + pageCount - 1) / pageCount
	if linesPerPage < 1 {
		linesPerPage = 1
	}

	nodes := make([]textNode, 0, len(lines))
	for idx, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		nodes = append(nodes, textNode{
			text:       line,
			pageNumber: idx/linesPerPage + 1,
		})
	}
	return nodes
}

func tailWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

func joinNonEmpty(prefix, text string) string {
	if prefix == "" {
		return text
	}
	return prefix + " " + text
}

// CountWords counts whitespace-delimited words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
