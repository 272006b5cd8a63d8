package ranking

import (
	"math"
	"sort"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const DefaultTopK = 3

// Cosine returns dot(a,b)/(|a||b|). Mismatched lengths, empty vectors and
// zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// Rank scores embedded chunks against query and returns at most topK of them,
// highest score first. Equal scores keep document order.
func Rank(query []float32, chunks []domain.TextChunk, topK int) []domain.ScoredChunk {
	if topK <= 0 {
		topK = DefaultTopK
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.Embedded() {
			continue
		}
		scored = append(scored, domain.ScoredChunk{
			Chunk: chunk,
			Score: Cosine(query, chunk.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
