package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newLibraryCommand(env envFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage preloaded documents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List preloaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, release, err := env(cmd)
			if err != nil {
				return err
			}
			defer release()

			entries, err := e.Session.Library(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "library is empty")
				return nil
			}
			for _, entry := range entries {
				titleColor.Fprint(out, entry.Title)
				fmt.Fprintf(out, "  %s", entry.Filename)
				if entry.Category != "" {
					dimColor.Fprintf(out, "  [%s]", entry.Category)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path>",
		Short: "Copy a local document into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, release, err := env(cmd)
			if err != nil {
				return err
			}
			defer release()
			if e.Library == nil {
				return errors.New("no document library configured")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			name := filepath.Base(args[0])
			if err := e.Library.Save(cmd.Context(), name, f); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", name)
			return nil
		},
	})
	return cmd
}
