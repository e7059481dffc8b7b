package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index counts and cross-store consistency",
		Long: `Report the chunk counts of both stores and the identifiers present in
only one of them. A diverged index is repaired by re-ingesting the
affected documents or by a reset.`,
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

			st, err := writer.Status(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer(opts).Status(st))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")

	return cmd
}
