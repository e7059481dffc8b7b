package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docfuse/docfuse/configs"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated docfuse.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			const path = "docfuse.yaml"
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; re-run with --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(configs.ExampleConfig), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
