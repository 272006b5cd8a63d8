package usecase

import (
	"sync"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const DefaultHistorySize = 5

// QuestionHistory keeps the most recent distinct questions, newest first.
// A question already present is not moved.
type QuestionHistory struct {
	mu    sync.Mutex
	limit int
	items []domain.Query
}

func NewQuestionHistory(limit int) *QuestionHistory {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &QuestionHistory{limit: limit}
}

// Add records q and reports whether it was new.
func (h *QuestionHistory) Add(q domain.Query) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.items {
		if existing.Text == q.Text {
			return false
		}
	}
	items := make([]domain.Query, 0, h.limit)
	items = append(items, q)
	items = append(items, h.items[:min(len(h.items), h.limit-1)]...)
	h.items = items
	return true
}

func (h *QuestionHistory) List() []domain.Query {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Query, len(h.items))
	copy(out, h.items)
	return out
}

func (h *QuestionHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}
