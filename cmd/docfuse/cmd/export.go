package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the index to a file or stdout",
		Long: `Export every chunk with its payload and embedding as a versioned JSON
snapshot. Importing the snapshot elsewhere rebuilds the index without
calling the embedding provider.

Examples:
  docfuse export -o index.snapshot.json
  docfuse export | gzip > index.snapshot.json.gz`,
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

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			snap, err := writer.Export(cmd.Context(), out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d chunks (snapshot %s)\n",
				snap.Count, snap.SnapshotID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the snapshot to this file instead of stdout")

	return cmd
}
