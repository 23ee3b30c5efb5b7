package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

// MemoryConfigurationRepository keeps records of one kind in process. All
// checks and writes happen under one lock, so uniqueness, range overlap and
// version checks are atomic.
type MemoryConfigurationRepository[P configuration.AnyPayload] struct {
	kind    configuration.Kind
	now     func() time.Time
	mu      sync.RWMutex
	records map[uuid.UUID]*configuration.Record[P]
	order   []uuid.UUID
}

func NewMemoryConfigurationRepository[P configuration.AnyPayload]() *MemoryConfigurationRepository[P] {
	var zero P
	return &MemoryConfigurationRepository[P]{
		kind:    zero.Kind(),
		now:     func() time.Time { return time.Now().UTC() },
		records: make(map[uuid.UUID]*configuration.Record[P]),
	}
}

func (r *MemoryConfigurationRepository[P]) Create(ctx context.Context, rec *configuration.Record[P]) error {
	if err := ctx.Err(); err != nil {
		return serrors.NewIOError(r.kind.String(), "create", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if _, exists := r.records[rec.ID]; exists {
		return serrors.NewDuplicateError(r.kind.String(), "id", rec.ID)
	}
	if err := r.checkConstraints(rec); err != nil {
		return err
	}

	now := r.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	rec.Version = 1

	r.records[rec.ID] = rec.Clone()
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *MemoryConfigurationRepository[P]) GetByID(ctx context.Context, id uuid.UUID) (*configuration.Record[P], error) {
	if err := ctx.Err(); err != nil {
		return nil, serrors.NewIOError(r.kind.String(), "get", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, serrors.NewNotFoundError(r.kind.String(), id.String())
	}
	return rec.Clone(), nil
}

func (r *MemoryConfigurationRepository[P]) List(ctx context.Context, params *configuration.FindParams) ([]*configuration.Record[P], error) {
	if err := ctx.Err(); err != nil {
		return nil, serrors.NewIOError(r.kind.String(), "list", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filter(params)
	if params != nil {
		matched = paginate(matched, params.Limit, params.Offset)
	}
	out := make([]*configuration.Record[P], 0, len(matched))
	for _, rec := range matched {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *MemoryConfigurationRepository[P]) Count(ctx context.Context, params *configuration.FindParams) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, serrors.NewIOError(r.kind.String(), "count", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.filter(params))), nil
}

func (r *MemoryConfigurationRepository[P]) Update(ctx context.Context, rec *configuration.Record[P], expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return serrors.NewIOError(r.kind.String(), "update", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[rec.ID]
	if !ok {
		return serrors.NewNotFoundError(r.kind.String(), rec.ID.String())
	}
	if current.Version != expectedVersion {
		return serrors.NewVersionConflictError(r.kind.String(), rec.ID.String(), expectedVersion)
	}
	if err := r.checkConstraints(rec); err != nil {
		return err
	}

	rec.Version = expectedVersion + 1
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = r.now()
	r.records[rec.ID] = rec.Clone()
	return nil
}

func (r *MemoryConfigurationRepository[P]) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return serrors.NewIOError(r.kind.String(), "delete", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[id]
	if !ok {
		return serrors.NewNotFoundError(r.kind.String(), id.String())
	}
	if current.Version != expectedVersion {
		return serrors.NewVersionConflictError(r.kind.String(), id.String(), expectedVersion)
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// checkConstraints must be called with the write lock held.
func (r *MemoryConfigurationRepository[P]) checkConstraints(rec *configuration.Record[P]) error {
	key := rec.Payload.UniqueKey()
	ranged, isRanged := any(rec.Payload).(configuration.Ranged)
	for id, other := range r.records {
		if id == rec.ID {
			continue
		}
		if key != "" && other.Payload.UniqueKey() == key {
			return serrors.NewDuplicateError(r.kind.String(), "uniqueKey", key)
		}
		if !isRanged {
			continue
		}
		otherRanged := any(other.Payload).(configuration.Ranged)
		if otherRanged.RangeKey() != ranged.RangeKey() {
			continue
		}
		lo, hi := ranged.SalaryRange()
		oLo, oHi := otherRanged.SalaryRange()
		if configuration.RangesOverlap(lo, hi, oLo, oHi) {
			return serrors.NewOverlapError(r.kind.String(), "salaryRange", lo.String()+"-"+hi.String(),
				"salary range overlaps record "+id.String())
		}
	}
	return nil
}

func (r *MemoryConfigurationRepository[P]) filter(params *configuration.FindParams) []*configuration.Record[P] {
	out := make([]*configuration.Record[P], 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		if params.Matches(rec.Status, rec.Payload.UniqueKey()) {
			out = append(out, rec)
		}
	}
	return out
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
