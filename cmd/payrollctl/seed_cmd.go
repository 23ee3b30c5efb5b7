package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/actor"
	"github.com/iota-uz/payroll-config/modules/payroll/services"
)

func newSeedCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create draft configuration records from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(actorID)
			if err != nil {
				return errors.Wrap(err, "actor-id")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open seed file")
			}
			defer f.Close()

			payloads, err := services.ParseSeed(f)
			if err != nil {
				return err
			}
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			items, err := rt.module.Lifecycles.Seed(rt.Context(cmd.Context()), payloads, actor.Authenticated(id))
			if writeErr := writeJSON(cmd.OutOrStdout(), items); writeErr != nil && err == nil {
				err = writeErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&actorID, "actor-id", "", "user recorded as creator of the drafts")
	_ = cmd.MarkFlagRequired("actor-id")
	return cmd
}
