package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
)

func newResetCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete both indexes and start empty",
		Long: `Drop the vector store and the full-text store. All indexed chunks are
lost; source documents are untouched. Requires --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("reset drops the entire index; re-run with --force to confirm")
			}

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

			if err := writer.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "index reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm the reset")

	return cmd
}
