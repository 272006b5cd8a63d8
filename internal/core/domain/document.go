package domain

import "time"

const (
	MediaTypePlainText = "text/plain"
	MediaTypePDF       = "application/pdf"
	MediaTypeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MaxDocumentSize is the upload limit callers enforce before extraction.
const MaxDocumentSize int64 = 20 << 20

type Document struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Size           int64     `json:"size"`
	Type           string    `json:"type"`
	PageCount      int       `json:"page_count"`
	WordCount      int       `json:"word_count"`
	ChunkCount     int       `json:"chunk_count"`
	EmbeddingCount int       `json:"embedding_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentFile is the raw byte source handed to the extractor.
type DocumentFile struct {
	Name      string
	MediaType string
	Size      int64
	Content   []byte
}

type Extraction struct {
	Text      string
	PageCount int
}

type ChunkMetadata struct {
	PageNumber *int `json:"page_number,omitempty"`
	Location   *int `json:"location,omitempty"`
}

type TextChunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	Embedding  []float32     `json:"embedding,omitempty"`
}

func (c TextChunk) Embedded() bool {
	return len(c.Embedding) > 0
}

func (c TextChunk) PageNumber() int {
	if c.Metadata.PageNumber == nil {
		return 0
	}
	return *c.Metadata.PageNumber
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
