package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence/models"
	"github.com/iota-uz/payroll-config/pkg/composables"
	"github.com/iota-uz/payroll-config/pkg/repo"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

const (
	configurationSelectQuery = `
		SELECT id, kind, status, payload, unique_key, version, created_by, approved_by, approved_at, created_at, updated_at
		FROM payroll_configurations`

	configurationCountQuery = `SELECT COUNT(*) FROM payroll_configurations`

	configurationInsertQuery = `
		INSERT INTO payroll_configurations (
			id, kind, status, payload, unique_key, range_key, salary_range,
			version, created_by, approved_by, approved_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numrange, $8, $9, $10, $11, $12, $13)`

	configurationUpdateQuery = `
		UPDATE payroll_configurations
		SET status = $1, payload = $2, unique_key = $3, range_key = $4, salary_range = $5::numrange,
			approved_by = $6, approved_at = $7, updated_at = $8, version = version + 1
		WHERE id = $9 AND kind = $10 AND version = $11
		RETURNING version`

	configurationDeleteQuery = `DELETE FROM payroll_configurations WHERE id = $1 AND kind = $2 AND version = $3`

	configurationExistsQuery = `SELECT EXISTS(SELECT 1 FROM payroll_configurations WHERE id = $1 AND kind = $2)`
)

// ConfigurationRepository stores every kind in one table discriminated by
// the kind column. The unique index and the exclusion constraint on
// salary_range make uniqueness and overlap checks atomic with the write.
type ConfigurationRepository[P configuration.AnyPayload] struct {
	kind    configuration.Kind
	timeout time.Duration
	now     func() time.Time
}

func NewConfigurationRepository[P configuration.AnyPayload](timeout time.Duration) *ConfigurationRepository[P] {
	var zero P
	return &ConfigurationRepository[P]{
		kind:    zero.Kind(),
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *ConfigurationRepository[P]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *ConfigurationRepository[P]) Create(ctx context.Context, rec *configuration.Record[P]) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return serrors.NewIOError(r.kind.String(), "create", err)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.UpdatedAt = rec.CreatedAt
	rec.Version = 1

	m, err := toDBConfiguration(rec)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		ctx,
		configurationInsertQuery,
		m.ID,
		m.Kind,
		m.Status,
		m.Payload,
		m.UniqueKey,
		m.RangeKey,
		m.SalaryRange,
		m.Version,
		m.CreatedBy,
		m.ApprovedBy,
		m.ApprovedAt,
		m.CreatedAt,
		m.UpdatedAt,
	); err != nil {
		return mapStorageError(r.kind.String(), "create", err)
	}
	return nil
}

func (r *ConfigurationRepository[P]) GetByID(ctx context.Context, id uuid.UUID) (*configuration.Record[P], error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	records, err := r.queryRecords(ctx, configurationSelectQuery+" WHERE id = $1 AND kind = $2", id, r.kind.String())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, serrors.NewNotFoundError(r.kind.String(), id.String())
	}
	return records[0], nil
}

func (r *ConfigurationRepository[P]) List(ctx context.Context, params *configuration.FindParams) ([]*configuration.Record[P], error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	where, args := r.buildFilters(params)
	query := configurationSelectQuery + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at ASC, id ASC"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}
	return r.queryRecords(ctx, query, args...)
}

func (r *ConfigurationRepository[P]) Count(ctx context.Context, params *configuration.FindParams) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, serrors.NewIOError(r.kind.String(), "count", err)
	}
	where, args := r.buildFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, configurationCountQuery+" WHERE "+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, mapStorageError(r.kind.String(), "count", err)
	}
	return count, nil
}

func (r *ConfigurationRepository[P]) Update(ctx context.Context, rec *configuration.Record[P], expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return serrors.NewIOError(r.kind.String(), "update", err)
	}
	rec.UpdatedAt = r.now()
	m, err := toDBConfiguration(rec)
	if err != nil {
		return err
	}

	var version int64
	err = tx.QueryRow(
		ctx,
		configurationUpdateQuery,
		m.Status,
		m.Payload,
		m.UniqueKey,
		m.RangeKey,
		m.SalaryRange,
		m.ApprovedBy,
		m.ApprovedAt,
		m.UpdatedAt,
		m.ID,
		m.Kind,
		expectedVersion,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrConflict(ctx, tx, rec.ID, expectedVersion)
	}
	if err != nil {
		return mapStorageError(r.kind.String(), "update", err)
	}
	rec.Version = version
	return nil
}

func (r *ConfigurationRepository[P]) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return serrors.NewIOError(r.kind.String(), "delete", err)
	}
	tag, err := tx.Exec(ctx, configurationDeleteQuery, id, r.kind.String(), expectedVersion)
	if err != nil {
		return mapStorageError(r.kind.String(), "delete", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, tx, id, expectedVersion)
	}
	return nil
}

// missOrConflict explains a conditional write that touched no rows.
func (r *ConfigurationRepository[P]) missOrConflict(ctx context.Context, tx repo.Tx, id uuid.UUID, expectedVersion int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, configurationExistsQuery, id, r.kind.String()).Scan(&exists); err != nil {
		return mapStorageError(r.kind.String(), "lookup", err)
	}
	if !exists {
		return serrors.NewNotFoundError(r.kind.String(), id.String())
	}
	return serrors.NewVersionConflictError(r.kind.String(), id.String(), expectedVersion)
}

func (r *ConfigurationRepository[P]) queryRecords(ctx context.Context, query string, args ...any) ([]*configuration.Record[P], error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, serrors.NewIOError(r.kind.String(), "query", err)
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStorageError(r.kind.String(), "query", err)
	}
	defer rows.Close()

	var results []*configuration.Record[P]
	for rows.Next() {
		var row models.ConfigurationRecord
		if err := rows.Scan(
			&row.ID,
			&row.Kind,
			&row.Status,
			&row.Payload,
			&row.UniqueKey,
			&row.Version,
			&row.CreatedBy,
			&row.ApprovedBy,
			&row.ApprovedAt,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, mapStorageError(r.kind.String(), "scan", err)
		}
		rec, err := toDomainConfiguration[P](&row)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageError(r.kind.String(), "query", err)
	}
	return results, nil
}

func (r *ConfigurationRepository[P]) buildFilters(params *configuration.FindParams) ([]string, []any) {
	where := []string{"kind = $1"}
	args := []any{r.kind.String()}
	if params == nil {
		return where, args
	}
	if len(params.Statuses) > 0 {
		statuses := make([]string, len(params.Statuses))
		for i, s := range params.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, statuses)
	}
	if params.UniqueKey != "" {
		where = append(where, fmt.Sprintf("unique_key = $%d", len(args)+1))
		args = append(args, params.UniqueKey)
	}
	return where, args
}
