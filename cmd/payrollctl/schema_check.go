package main

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

const appendOnlyTrigger = "payroll_audit_logs_no_mutation"

const schemaCheckQuery = `SELECT
	to_regclass('public.payroll_configurations') IS NOT NULL,
	to_regclass('public.payroll_audit_logs') IS NOT NULL,
	EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = $1)`

// verifySchema fails unless both payroll tables and the append-only trigger
// on the audit table are installed.
func verifySchema(ctx context.Context, db *sql.DB) error {
	var configurations, auditLogs, trigger bool
	if err := db.QueryRowContext(ctx, schemaCheckQuery, appendOnlyTrigger).Scan(&configurations, &auditLogs, &trigger); err != nil {
		return errors.Wrap(err, "schema check")
	}
	switch {
	case !configurations:
		return errors.New("table payroll_configurations is missing")
	case !auditLogs:
		return errors.New("table payroll_audit_logs is missing")
	case !trigger:
		return errors.Errorf("trigger %s is missing", appendOnlyTrigger)
	}
	return nil
}
