package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ochairo/trustscan/internal/external-adapters/yaml"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented example configuration",
		Long: `Write a commented example configuration to path, or to ~/.trustscan.yaml
when no path is given. An existing file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := filepath.Join(a.homeDir, ".trustscan.yaml")
			if len(args) == 1 {
				path = yaml.ExpandHome(args[0], a.homeDir)
			}
			if err := yaml.WriteExample(path); err != nil {
				return usageError(fmt.Errorf("error generating config: %w", err))
			}
			a.notef("Example configuration saved to %s", path)
			return nil
		},
	}

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "List the locations searched for a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, p := range yaml.NewConfigRepository(a.homeDir).SearchPaths() {
				if _, err := fmt.Fprintln(a.stdout, p); err != nil {
					return failure(err)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, pathsCmd)
	return cmd
}
