package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iota-uz/payroll-config/pkg/serrors"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// mapStorageError translates driver failures into the serrors taxonomy.
// Errors that already carry a kind pass through unchanged.
func mapStorageError(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := serrors.AsError(err); ok {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return serrors.NewDuplicateError(entity, "uniqueKey", pgErr.Detail)
		case pgExclusionViolation:
			return serrors.NewOverlapError(entity, "salaryRange", pgErr.Detail, "salary range overlaps an existing record")
		}
	}
	// Deadlines, cancellations and connection failures are all retryable.
	return serrors.NewIOError(entity, op, err)
}
