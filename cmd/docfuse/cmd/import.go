package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [snapshot-file]",
		Short: "Load a snapshot into both indexes",
		Long: `Read a snapshot from the given file (or stdin) and replay its chunks
into the vector store and the full-text store. The snapshot is fully
validated before any write; a rejected snapshot leaves the index
untouched. Stored embeddings are reused, so no provider is called.

Examples:
  docfuse import index.snapshot.json
  gunzip -c index.snapshot.json.gz | docfuse import`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer cleanup()

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

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			summary, err := writer.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer(opts).IngestSummary(summary))
			return nil
		},
	}

	return cmd
}
