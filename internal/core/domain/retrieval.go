package domain

import "time"

type ScoredChunk struct {
	Chunk TextChunk `json:"chunk"`
	Score float64   `json:"score"`
}

type Query struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

type Source struct {
	ChunkID    string   `json:"chunk_id"`
	Text       string   `json:"text"`
	PageNumber *int     `json:"page_number,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

type Answer struct {
	ID        string    `json:"id"`
	QueryID   string    `json:"query_id"`
	Text      string    `json:"text"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSource(sc ScoredChunk) Source {
	score := sc.Score
	src := Source{
		ChunkID: sc.Chunk.ID,
		Text:    sc.Chunk.Text,
		Score:   &score,
	}
	if sc.Chunk.Metadata.PageNumber != nil {
		src.PageNumber = IntPtr(*sc.Chunk.Metadata.PageNumber)
	}
	return src
}
