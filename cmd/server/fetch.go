package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the model file if it is not present yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.fetcher().Ensure(cmd.Context(), a.cfg.Model.Path, a.cfg.Model.URL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model available at %s\n", a.cfg.Model.Path)
			return nil
		},
	}
}
