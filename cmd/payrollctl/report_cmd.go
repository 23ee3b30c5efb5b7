package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/services"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func summaryCmd(use, short string, load func(context.Context, *services.ApprovalDashboard) (*services.ApprovalSummary, error)) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			summary, err := load(rt.Context(cmd.Context()), rt.module.Dashboard)
			if err != nil {
				return errors.Wrap(err, use)
			}
			if kind != "" {
				return writeJSON(cmd.OutOrStdout(), summary.ByKind(configuration.Kind(strings.ToLower(kind))))
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "limit output to one configuration kind (e.g. pay_grade)")
	return cmd
}

func newPendingCmd() *cobra.Command {
	return summaryCmd("pending", "List configuration records awaiting approval",
		func(ctx context.Context, d *services.ApprovalDashboard) (*services.ApprovalSummary, error) {
			return d.GetPending(ctx)
		})
}

func newApprovedCmd() *cobra.Command {
	return summaryCmd("approved", "List approved configuration records",
		func(ctx context.Context, d *services.ApprovalDashboard) (*services.ApprovalSummary, error) {
			return d.GetAllApproved(ctx)
		})
}

type auditFlags struct {
	entityType string
	entityID   string
	actorID    string
	action     string
	since      time.Duration
	limit      int
	offset     int
}

func (f *auditFlags) params(now time.Time) (*auditlog.FindParams, error) {
	params := &auditlog.FindParams{Limit: f.limit, Offset: f.offset}
	if f.entityType != "" {
		params.EntityType = configuration.Kind(strings.ToLower(f.entityType))
		if !params.EntityType.IsValid() {
			return nil, errors.Errorf("unknown entity type %q", f.entityType)
		}
	}
	if f.action != "" {
		params.Action = auditlog.Action(strings.ToUpper(f.action))
		if !params.Action.IsValid() {
			return nil, errors.Errorf("unknown action %q", f.action)
		}
	}
	if f.entityID != "" {
		id, err := uuid.Parse(f.entityID)
		if err != nil {
			return nil, errors.Wrap(err, "entity-id")
		}
		params.EntityID = &id
	}
	if f.actorID != "" {
		id, err := uuid.Parse(f.actorID)
		if err != nil {
			return nil, errors.Wrap(err, "actor-id")
		}
		params.ActorID = &id
	}
	if f.since > 0 {
		from := now.Add(-f.since)
		params.From = &from
	}
	return params, nil
}

func newAuditCmd() *cobra.Command {
	flags := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the payroll configuration audit trail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := flags.params(time.Now().UTC())
			if err != nil {
				return err
			}
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			entries, err := rt.module.Audit.Query(rt.Context(cmd.Context()), params)
			if err != nil {
				return errors.Wrap(err, "audit query")
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&flags.entityType, "entity-type", "", "configuration kind")
	cmd.Flags().StringVar(&flags.entityID, "entity-id", "", "record id")
	cmd.Flags().StringVar(&flags.actorID, "actor-id", "", "acting user id")
	cmd.Flags().StringVar(&flags.action, "action", "", "CREATE, UPDATE, DELETE, APPROVE or REJECT")
	cmd.Flags().DurationVar(&flags.since, "since", 0, "only entries newer than this")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "page offset")
	return cmd
}
