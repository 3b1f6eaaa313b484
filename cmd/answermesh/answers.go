package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/answermesh/core"
)

func newAnswersCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "answers",
		Short:   "Print the stored answers",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			identity, err := c.identity()
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx, c.settings, afero.NewOsFs())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			set, err := store.Load(ctx, identity)
			if errors.Is(err, core.ErrResultSetNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No answers stored for %s. Run 'run-one' or 'run-all' first.\n", identity)
				return nil
			}
			if err != nil {
				return err
			}

			return printResults(cmd.OutOrStdout(), set)
		},
	}
}
