// Package cmd provides the CLI commands for docfuse.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/internal/config"
	"github.com/docfuse/docfuse/internal/logging"
	"github.com/docfuse/docfuse/internal/ui"
	"github.com/docfuse/docfuse/pkg/version"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
	noColor    bool
	debug      bool
}

// NewRootCmd creates the root command for the docfuse CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docfuse",
		Short: "Hybrid document search over local files",
		Long: `docfuse indexes documents into a vector store and a full-text store
under a shared chunk identity, then answers queries by fusing both
rankings with Reciprocal Rank Fusion.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docfuse version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (default: docfuse.yaml if present)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig resolves configuration and sets up logging for a command run.
// The returned cleanup closes the log file, if any.
func loadConfig(opts *rootOptions) (config.Config, func(), error) {
	path := opts.configPath
	if path == "" {
		path = "docfuse.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}

	cleanup, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, cleanup, nil
}

// renderer builds the output renderer respecting color preferences.
func renderer(opts *rootOptions) *ui.Renderer {
	return ui.NewRenderer(opts.noColor || ui.ShouldDisableColor())
}
