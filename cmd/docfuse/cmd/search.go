package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/index"
	"github.com/docfuse/docfuse/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK       int
	sourceType string
	pathPrefix string
	jsonOutput bool
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var sopts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index with fused keyword and vector rankings",
		Long: `Run the query against both engines concurrently and merge their
rankings with Reciprocal Rank Fusion.

Examples:
  docfuse search "retry backoff"
  docfuse search "setup instructions" --source-type md --top-k 5
  docfuse search "error handling" --path-prefix docs/ --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, opts, query, sopts)
		},
	}

	cmd.Flags().IntVarP(&sopts.topK, "top-k", "n", 0, "Maximum number of results (default 10)")
	cmd.Flags().StringVarP(&sopts.sourceType, "source-type", "t", "", "Restrict results to a source type (e.g. md, txt)")
	cmd.Flags().StringVarP(&sopts.pathPrefix, "path-prefix", "p", "", "Restrict results to documents under a path prefix")
	cmd.Flags().BoolVar(&sopts.jsonOutput, "json", false, "Emit results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, opts *rootOptions, query string, sopts searchOptions) error {
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

	results, err := engine.Search(ctx, search.Request{
		Query:      query,
		TopK:       sopts.topK,
		SourceType: sopts.sourceType,
		PathPrefix: sopts.pathPrefix,
	})
	if err != nil {
		return err
	}

	if sopts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderer(opts).SearchResults(results))
	return nil
}
