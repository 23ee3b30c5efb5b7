package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence/models"
	"github.com/iota-uz/payroll-config/pkg/composables"
	"github.com/iota-uz/payroll-config/pkg/repo"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

const auditEntity = "audit_log"

// AuditLogRepository appends to payroll_audit_logs. A trigger on the table
// rejects UPDATE and DELETE.
type AuditLogRepository struct {
	timeout time.Duration
}

func NewAuditLogRepository(timeout time.Duration) auditlog.Repository {
	return &AuditLogRepository{timeout: timeout}
}

func (r *AuditLogRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *auditlog.Entry) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return serrors.NewIOError(auditEntity, "append", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	m, err := toDBAuditLog(entry)
	if err != nil {
		return err
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO payroll_audit_logs (entity_type, entity_id, action, actor_id, before, after, reason, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		m.EntityType,
		m.EntityID,
		m.Action,
		m.ActorID,
		m.Before,
		m.After,
		m.Reason,
		m.Changes,
		m.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return mapStorageError(auditEntity, "append", err)
	}
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, serrors.NewIOError(auditEntity, "list", err)
	}
	where, args := buildAuditLogFilters(params)
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, before, after, reason, changes, created_at
		FROM payroll_audit_logs
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStorageError(auditEntity, "list", err)
	}
	defer rows.Close()

	var results []*auditlog.Entry
	for rows.Next() {
		var row models.AuditLog
		if err := rows.Scan(
			&row.ID,
			&row.EntityType,
			&row.EntityID,
			&row.Action,
			&row.ActorID,
			&row.Before,
			&row.After,
			&row.Reason,
			&row.Changes,
			&row.CreatedAt,
		); err != nil {
			return nil, mapStorageError(auditEntity, "scan", err)
		}
		entry, err := toDomainAuditLog(&row)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageError(auditEntity, "list", err)
	}
	return results, nil
}

func (r *AuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, serrors.NewIOError(auditEntity, "count", err)
	}
	where, args := buildAuditLogFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM payroll_audit_logs
		WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, mapStorageError(auditEntity, "count", err)
	}
	return count, nil
}

func buildAuditLogFilters(params *auditlog.FindParams) ([]string, []any) {
	where := []string{"1 = 1"}
	var args []any
	if params == nil {
		return where, args
	}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if params.EntityType != "" {
		add("entity_type = $%d", params.EntityType.String())
	}
	if params.EntityID != nil {
		add("entity_id = $%d", *params.EntityID)
	}
	if params.Action != "" {
		add("action = $%d", string(params.Action))
	}
	if params.ActorID != nil {
		add("actor_id = $%d", *params.ActorID)
	}
	if params.From != nil && !params.From.IsZero() {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil && !params.To.IsZero() {
		add("created_at <= $%d", *params.To)
	}
	return where, args
}
