package chunking

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

// wrappedParagraph returns lines of 20 four-letter words (99 characters each).
func wrappedParagraph(lines int) string {
	line := strings.TrimSpace(strings.Repeat("abcd ", 20))
	out := make([]string, lines)
	for i := range out {
		out[i] = line
	}
	return strings.Join(out, "\n")
}

func TestSplitWrappedParagraphYieldsThreeChunks(t *testing.T) {
	text := wrappedParagraph(25)
	if n := utf8.RuneCountInString(text); n != 2499 {
		t.Fatalf("fixture length = %d", n)
	}

	chunks := NewSplitter(1000, 200).Split(text, 1, 0)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{999, 999, 899}
	for i, chunk := range chunks {
		if got := utf8.RuneCountInString(chunk.Text); got != wantLens[i] {
			t.Fatalf("chunk %d: expected %d chars, got %d", i, wantLens[i], got)
		}
		if got := utf8.RuneCountInString(chunk.Text); got > 1000 {
			t.Fatalf("chunk %d exceeds chunk size: %d", i, got)
		}
	}
}

func TestSplitOverlapIsApproximatedInWords(t *testing.T) {
	chunks := NewSplitter(1000, 200).Split(wrappedParagraph(25), 1, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks")
	}

	// 200 characters of overlap become 40 words, not 200 characters.
	overlap := tailWords(chunks[0].Text, 40)
	if !strings.HasPrefix(chunks[1].Text, overlap+" ") {
		t.Fatalf("expected second chunk to start with the 40-word overlap")
	}
	if n := utf8.RuneCountInString(overlap); n != 199 {
		t.Fatalf("expected 199 overlap characters, got %d", n)
	}
}

func TestSplitReconstructsSourceWithoutGaps(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about topic %d in some detail.\n", i, i%7)
		if i%9 == 0 {
			b.WriteString("\n   \n")
		}
	}
	text := b.String()
	s := NewSplitter(300, 50)
	chunks := s.Split(text, 3, 0)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	want := strings.Join(lines, " ")

	rebuilt := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		prefix := tailWords(chunks[i-1].Text, s.Overlap/charsPerWord) + " "
		if !strings.HasPrefix(chunks[i].Text, prefix) {
			t.Fatalf("chunk %d does not start with the overlap of chunk %d", i, i-1)
		}
		rebuilt += " " + strings.TrimPrefix(chunks[i].Text, prefix)
	}
	if rebuilt != want {
		t.Fatalf("reconstructed text differs from source\nwant: %q\ngot:  %q", want, rebuilt)
	}
}

func TestSplitSoftCapAndNonEmptyChunks(t *testing.T) {
	text := "short line\n" + strings.Repeat("x", 1500) + "\nanother short line\n" + wrappedParagraph(12)
	chunks := NewSplitter(1000, 200).Split(text, 2, 0)

	longest := 1500
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		if i < len(chunks)-1 && utf8.RuneCountInString(chunk.Text) > 1000+longest {
			t.Fatalf("chunk %d exceeds soft cap: %d", i, utf8.RuneCountInString(chunk.Text))
		}
	}

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk.Text, strings.Repeat("x", 1500)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversized node must be kept whole in one chunk")
	}
}

func TestSplitSingleOversizedNode(t *testing.T) {
	chunks := NewSplitter(1000, 200).Split(strings.Repeat("y", 2500), 1, 0)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if utf8.RuneCountInString(chunks[0].Text) != 2500 {
		t.Fatalf("expected node kept whole")
	}
}

func TestSplitAssignsEarliestPageAndLocations(t *testing.T) {
	lines := make([]string, 80)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %02d of the document", i)
	}
	chunks := NewSplitter(200, 0).Split(strings.Join(lines, "\n"), 2, 0)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	if got := chunks[0].PageNumber(); got != 1 {
		t.Fatalf("expected first chunk on page 1, got %d", got)
	}
	if got := chunks[len(chunks)-1].PageNumber(); got != 2 {
		t.Fatalf("expected last chunk on page 2, got %d", got)
	}
	for i, chunk := range chunks {
		if chunk.Metadata.Location == nil || *chunk.Metadata.Location != i {
			t.Fatalf("chunk %d: expected location %d", i, i)
		}
		if strings.Contains(chunk.Text, "line 39") && strings.Contains(chunk.Text, "line 40") && chunk.PageNumber() != 1 {
			t.Fatalf("chunk spanning pages must keep the earliest page")
		}
	}
}

func TestSplitDropsEmptyText(t *testing.T) {
	if got := NewSplitter(1000, 200).Split(" \n\n\t\n", 1, 0); len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
}

func TestSplitChunkSizeOverride(t *testing.T) {
	s := NewSplitter(1000, 200)
	small := s.Split(wrappedParagraph(25), 1, 500)
	medium := s.Split(wrappedParagraph(25), 1, 0)
	if len(small) <= len(medium) {
		t.Fatalf("expected more chunks with a smaller size: %d vs %d", len(small), len(medium))
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("  one two\nthree\t four  "); got != 4 {
		t.Fatalf("expected 4 words, got %d", got)
	}
}
