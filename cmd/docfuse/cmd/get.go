package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
	"github.com/docfuse/docfuse/internal/search"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <chunk-id>",
		Short: "Fetch a single chunk by its identifier",
		Args:  cobra.ExactArgs(1),
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

			vectors, texts := writer.Stores()
			engine := search.NewEngine(embedder, vectors, texts, cfg.Search.LegTimeout)

			c, err := engine.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "chunk:  %s\n", c.ID)
			if c.DocPath != "" {
				fmt.Fprintf(out, "doc:    %s (%s)\n", c.DocPath, c.SourceType)
				fmt.Fprintf(out, "span:   chunk %d, chars %d-%d\n", c.Index, c.Start, c.End)
			}
			if c.Title != "" {
				fmt.Fprintf(out, "title:  %s\n", c.Title)
			}
			if c.Text != "" {
				fmt.Fprintf(out, "\n%s\n", c.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the chunk as JSON")

	return cmd
}
