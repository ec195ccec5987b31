package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := fmt.Fprintf(a.stdout, "trustscan %s (commit %s, %s/%s)\n", version, commit, runtime.GOOS, runtime.GOARCH); err != nil {
				return failure(err)
			}
			return nil
		},
	}
}
