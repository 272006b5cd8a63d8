package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/kirillkom/docqa/internal/core/domain"
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
	errorColor  = color.New(color.FgRed)
)

func disableColor() {
	color.NoColor = true
}

// embeddingProgress renders a bar once the embedder reports a total.
func embeddingProgress(w io.Writer) (func(done, total int), func()) {
	var bar *progressbar.ProgressBar
	update := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(color.BlueString("embedding")),
				progressbar.OptionSetItsString("chunks"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
	finish := func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}
	return update, finish
}

func printDocument(w io.Writer, doc *domain.Document) {
	titleColor.Fprintf(w, "%s\n", doc.Name)
	fmt.Fprintf(w, "  pages %d, words %d, chunks %d, embedded %d\n",
		doc.PageCount, doc.WordCount, doc.ChunkCount, doc.EmbeddingCount)
	if missing := doc.ChunkCount - doc.EmbeddingCount; missing > 0 {
		errorColor.Fprintf(w, "  %d chunks could not be embedded and will not be searched\n", missing)
	}
}

func printAnswer(w io.Writer, answer *domain.Answer) {
	answerColor.Fprintln(w, answer.Text)
	for _, src := range answer.Sources {
		page := "?"
		if src.PageNumber != nil {
			page = fmt.Sprint(*src.PageNumber)
		}
		score := ""
		if src.Score != nil {
			score = fmt.Sprintf(" (%.2f)", *src.Score)
		}
		dimColor.Fprintf(w, "  [page %s]%s %s\n", page, score, preview(src.Text, 100))
	}
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
