// Package cli is the docqa command line. Every command drives the same
// session the HTTP API uses.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// Session is the session contract plus progress reporting for uploads.
type Session interface {
	ports.SessionService
	UploadWithProgress(ctx context.Context, file domain.DocumentFile, preset string, progress func(done, total int)) (*domain.Document, error)
}

type LibraryWriter interface {
	Save(ctx context.Context, filename string, data io.Reader) error
}

// Env is what a command needs once configuration is loaded.
type Env struct {
	Session Session
	Library LibraryWriter
	TopK    int
}

// EnvFactory builds the environment for one invocation. The returned func
// releases it.
type EnvFactory func(ctx context.Context, configFile, logLevel string) (*Env, func(), error)

type rootOptions struct {
	configFile string
	logLevel   string
	noColor    bool
}

func NewRootCommand(factory EnvFactory) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about a single document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for stderr diagnostics")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	env := func(cmd *cobra.Command) (*Env, func(), error) {
		if opts.noColor {
			disableColor()
		}
		e, release, err := factory(cmd.Context(), opts.configFile, opts.logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize: %w", err)
		}
		return e, release, nil
	}

	root.AddCommand(
		newAskCommand(env),
		newChunksCommand(env),
		newLibraryCommand(env),
		newMCPCommand(env),
	)
	return root
}

type envFunc func(cmd *cobra.Command) (*Env, func(), error)

// sourceFlags selects the document a command works on.
type sourceFlags struct {
	file    string
	library string
	preset  string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "local .txt, .pdf or .docx file")
	cmd.Flags().StringVarP(&f.library, "library", "l", "", "preloaded library document name")
	cmd.Flags().StringVar(&f.preset, "chunk-size", "", "chunk size preset: small, medium or large")
	cmd.MarkFlagsMutuallyExclusive("file", "library")
	cmd.MarkFlagsOneRequired("file", "library")
}
