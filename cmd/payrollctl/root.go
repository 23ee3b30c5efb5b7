package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "payrollctl",
		Short:         "Payroll configuration approval engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPendingCmd())
	cmd.AddCommand(newApprovedCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newSeedCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
