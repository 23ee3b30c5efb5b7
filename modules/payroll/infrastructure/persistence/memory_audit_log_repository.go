package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

// MemoryAuditLogRepository is an append-only in-process audit store.
type MemoryAuditLogRepository struct {
	mu      sync.RWMutex
	entries []auditlog.Entry
	nextID  int64
}

func NewMemoryAuditLogRepository() *MemoryAuditLogRepository {
	return &MemoryAuditLogRepository{}
}

func (r *MemoryAuditLogRepository) Append(ctx context.Context, entry *auditlog.Entry) error {
	if err := ctx.Err(); err != nil {
		return serrors.NewIOError("audit_log", "append", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryAuditLogRepository) List(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, serrors.NewIOError("audit_log", "list", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.filter(params)
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})
	if params != nil {
		matched = paginate(matched, params.Limit, params.Offset)
	}
	return matched, nil
}

func (r *MemoryAuditLogRepository) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, serrors.NewIOError("audit_log", "count", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.filter(params))), nil
}

// filter returns copies so callers cannot mutate stored entries.
func (r *MemoryAuditLogRepository) filter(params *auditlog.FindParams) []*auditlog.Entry {
	out := make([]*auditlog.Entry, 0, len(r.entries))
	for i := range r.entries {
		if params.Matches(&r.entries[i]) {
			cp := r.entries[i]
			out = append(out, &cp)
		}
	}
	return out
}
