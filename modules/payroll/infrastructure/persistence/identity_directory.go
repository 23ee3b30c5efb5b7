package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/payroll-config/pkg/composables"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

// UserDirectory resolves actor ids against the users table.
type UserDirectory struct {
	timeout time.Duration
}

func NewUserDirectory(timeout time.Duration) *UserDirectory {
	return &UserDirectory{timeout: timeout}
}

func (d *UserDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, serrors.NewIOError("user", "lookup", err)
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, mapStorageError("user", "lookup", err)
	}
	return exists, nil
}
