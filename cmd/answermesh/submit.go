package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/answermesh/evaluation"
)

func newSubmitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit the stored answers for scoring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := c.settings

			identity, err := c.identity()
			if err != nil {
				return err
			}
			if err := s.ValidateSubmit(); err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx, s, afero.NewOsFs())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			client := evaluation.NewClient(s.ScoringAPIBaseURL, func(o *evaluation.ClientOptions) {
				o.Username = identity
				o.SpaceID = s.SpaceID
				o.Store = store
				o.Logger = c.logger
			})

			fmt.Fprintln(cmd.OutOrStdout(), client.SubmitStatus(ctx, identity))

			return nil
		},
	}
}
