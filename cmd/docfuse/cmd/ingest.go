package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
	"github.com/docfuse/docfuse/internal/source"
	"github.com/docfuse/docfuse/internal/ui"
	"github.com/docfuse/docfuse/internal/watcher"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Chunk documents and write them to both indexes",
		Long: `Scan the given paths (or the configured sources), split each document
into overlapping chunks, embed them, and write every chunk to the
vector store and the full-text store.

Re-ingesting unchanged content is idempotent: chunk identity derives
from content, so existing entries are overwritten in place.

Examples:
  docfuse ingest ./docs
  docfuse ingest ./docs ./notes --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, opts, args, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and re-ingest on file changes")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, opts *rootOptions, args []string, watch bool) error {
	cfg, cleanup, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	roots := args
	if len(roots) == 0 {
		roots = cfg.Sources
	}
	if len(roots) == 0 {
		return fmt.Errorf("no paths given and no sources configured")
	}

	embedder, err := embed.New(cfg.Embedding)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	writer, err := index.NewWriter(cfg, embedder)
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	out := renderer(opts)
	if err := ingestOnce(ctx, cmd, out, writer, roots); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	w, err := watcher.New(watcher.DefaultDebounceWindow, func(paths []string) {
		slog.Info("re-ingesting after change", slog.Int("paths", len(paths)))
		if err := ingestOnce(ctx, cmd, out, writer, roots); err != nil {
			slog.Error("re-ingest failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(ctx, roots); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func ingestOnce(ctx context.Context, cmd *cobra.Command, out *ui.Renderer, writer *index.Writer, roots []string) error {
	scanner := source.NewScanner(source.DefaultMaxFileSize)
	docs, err := scanner.Scan(ctx, roots)
	if err != nil {
		return err
	}

	summary, err := writer.Ingest(ctx, docs)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out.IngestSummary(summary))
	return nil
}
