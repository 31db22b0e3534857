package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hongminglow/record-archive/internal/app"
	"github.com/hongminglow/record-archive/internal/config"
	"github.com/hongminglow/record-archive/internal/service"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ArchiveDir string
	Verbose    bool
}

// NewRootCommand creates the archivectl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "archivectl",
		Short: "Administer a record archive",
		Long: `Operate on a record archive directly, without the HTTP server.

Commands act as the built-in admin identity and read the same environment
as the server (STORAGE_BACKEND, ARCHIVE_DIR, DATABASE_URL, ...).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ArchiveDir, "archive-dir", "", "archive directory (overrides ARCHIVE_DIR)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log storage activity to stderr")

	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))

	return cmd
}

// openService loads config, applies flag overrides and opens the store.
func openService(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*service.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if opts.ArchiveDir != "" {
		cfg.ArchiveDir = opts.ArchiveDir
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return app.Open(ctx, cfg, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
