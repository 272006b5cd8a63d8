package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/storage/localfs"
)

func newAskCommand(env envFunc) *cobra.Command {
	var (
		source sourceFlags
		topK   int
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Load a document and answer questions about it",
		Long: `Load a document and answer a question about it. Without a question the
command reads questions from stdin, one per line. Type /history to list
recent questions and /quit to leave.`,
		Example: `  docqa ask --file notes.pdf "What is the main argument?"
  docqa ask --library great_gatsby.txt --chunk-size small`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, release, err := env(cmd)
			if err != nil {
				return err
			}
			defer release()

			if topK <= 0 {
				topK = e.TopK
			}
			out := cmd.OutOrStdout()
			doc, err := loadDocument(cmd.Context(), e.Session, source, cmd.ErrOrStderr())
			if err != nil {
				return userError(err)
			}
			printDocument(out, doc)

			if question := strings.TrimSpace(strings.Join(args, " ")); question != "" {
				return ask(cmd.Context(), e.Session, out, question, topK)
			}
			return repl(cmd.Context(), e.Session, cmd.InOrStdin(), out, topK)
		},
	}
	source.register(cmd)
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "chunks to retrieve per question (default from config)")
	return cmd
}

func loadDocument(ctx context.Context, session Session, source sourceFlags, progressOut io.Writer) (*domain.Document, error) {
	if source.library != "" {
		return session.LoadPreloaded(ctx, source.library, source.preset)
	}
	file, err := localfs.ReadDocumentFile(source.file)
	if err != nil {
		return nil, err
	}
	progress, finish := embeddingProgress(progressOut)
	defer finish()
	return session.UploadWithProgress(ctx, file, source.preset, progress)
}

func ask(ctx context.Context, session Session, out io.Writer, question string, topK int) error {
	_, answer, err := session.Ask(ctx, question, topK)
	if err != nil {
		return userError(err)
	}
	printAnswer(out, answer)
	return nil
}

func repl(ctx context.Context, session Session, in io.Reader, out io.Writer, topK int) error {
	scanner := bufio.NewScanner(in)
	for {
		dimColor.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			for i, q := range session.History() {
				fmt.Fprintf(out, "%d. %s\n", i+1, q.Text)
			}
			continue
		}
		if err := ask(ctx, session, out, line, topK); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errorColor.Fprintln(out, err.Error())
		}
	}
}

// userError keeps the wrapped error for errors.Is but prints the short message.
func userError(err error) error {
	return &displayError{err: err}
}

type displayError struct {
	err error
}

func (e *displayError) Error() string { return domain.UserMessage(e.err) }
func (e *displayError) Unwrap() error { return e.err }
