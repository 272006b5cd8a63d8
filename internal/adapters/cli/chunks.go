package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChunksCommand(env envFunc) *cobra.Command {
	var (
		source sourceFlags
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Show how a document is split into chunks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, release, err := env(cmd)
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			doc, err := loadDocument(cmd.Context(), e.Session, source, cmd.ErrOrStderr())
			if err != nil {
				return userError(err)
			}
			printDocument(out, doc)

			chunks, err := e.Session.ActiveChunks(cmd.Context())
			if err != nil {
				return userError(err)
			}
			for i, chunk := range chunks {
				if limit > 0 && i >= limit {
					dimColor.Fprintf(out, "... %d more\n", len(chunks)-limit)
					break
				}
				mark := "+"
				if !chunk.Embedded() {
					mark = "-"
				}
				titleColor.Fprintf(out, "#%d", i)
				fmt.Fprintf(out, " page %d %s %s\n", chunk.PageNumber(), mark, preview(chunk.Text, 80))
			}
			return nil
		},
	}
	source.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum chunks to print (0 = all)")
	return cmd
}
