package main

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/payroll-config/modules/payroll"
	"github.com/iota-uz/payroll-config/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|verify]",
		Short:     "Apply or inspect the payroll schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "verify"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			conf := configuration.Use()
			defer conf.Unload()

			db, err := sql.Open("postgres", conf.Database.Opts)
			if err != nil {
				return errors.Wrap(err, "open database")
			}
			defer db.Close()

			goose.SetBaseFS(payroll.MigrationFiles)
			goose.SetLogger(conf.Logger())
			if err := goose.SetDialect("postgres"); err != nil {
				return errors.Wrap(err, "goose dialect")
			}

			ctx := cmd.Context()
			switch direction {
			case "down":
				err = goose.DownContext(ctx, db, ".")
			case "status":
				err = goose.StatusContext(ctx, db, ".")
			case "verify":
				err = verifySchema(ctx, db)
			default:
				if err = goose.UpContext(ctx, db, "."); err == nil {
					err = verifySchema(ctx, db)
				}
			}
			return errors.Wrapf(err, "migrate %s", direction)
		},
	}
	return cmd
}
