package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

const (
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 1000

	// NotFoundReply is what the model is told to say when the context lacks the answer.
	NotFoundReply = "I don't see information about that in the document."

	contextSeparator = "\n---\n"
)

const systemPrompt = `You are a helpful assistant that answers questions about documents.
Answer the user's question based ONLY on the provided context.
If you cannot find the answer in the context, say "` + NotFoundReply + `"
Do not make up information.
Use markdown formatting for lists, emphasis and code where it helps readability.
Be concise but thorough.`

// Generator asks a chat model to answer a question from retrieved chunks.
type Generator struct {
	completer   ports.ChatCompleter
	temperature float64
	maxTokens   int
}

func NewGenerator(completer ports.ChatCompleter) *Generator {
	return &Generator{
		completer:   completer,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, error) {
	temperature := g.temperature
	maxTokens := g.maxTokens
	resp, err := g.completer.Complete(ctx, domain.ChatRequest{
		Messages:    BuildMessages(question, chunks),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrGenerationFailed, "generate answer", err)
	}

	content, ok := resp.FirstContent()
	if !ok {
		return "", domain.WrapError(domain.ErrGenerationFailed, "generate answer", errors.New("response has no choices"))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", domain.WrapError(domain.ErrGenerationFailed, "generate answer", errors.New("response content is empty"))
	}
	return content, nil
}

// BuildMessages returns the system instruction and the user turn carrying the
// context block and the question.
func BuildMessages(question string, chunks []domain.ScoredChunk) []domain.ChatMessage {
	user := fmt.Sprintf(
		"Context information is below:\n\n---\n\n%s\n\n---\n\nGiven the context information and not prior knowledge, answer the question: %s",
		BuildContext(chunks),
		question,
	)
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: user},
	}
}

func BuildContext(chunks []domain.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		var b strings.Builder
		if page := sc.Chunk.PageNumber(); page > 0 {
			fmt.Fprintf(&b, "[Page %d]\n", page)
		}
		b.WriteString(sc.Chunk.Text)
		b.WriteString("\n")
		parts = append(parts, b.String())
	}
	return strings.Join(parts, contextSeparator)
}
