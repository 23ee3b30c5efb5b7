package configuration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AnyPayload is implemented by every kind-specific payload.
type AnyPayload interface {
	Kind() Kind
	// UniqueKey returns the normalised key that must be unique across all
	// records of the kind regardless of status. Empty means no such key.
	UniqueKey() string
}

// Payload is the constraint used by generic services and repositories.
type Payload[P any] interface {
	AnyPayload
	// Normalized returns the payload as it must be stored.
	Normalized() P
}

type Record[P any] struct {
	ID         uuid.UUID  `json:"id"`
	Status     Status     `json:"status"`
	Payload    P          `json:"payload"`
	Version    int64      `json:"version"`
	CreatedBy  *uuid.UUID `json:"createdBy,omitempty"`
	ApprovedBy *uuid.UUID `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Clone returns a copy that shares no pointers with r.
func (r *Record[P]) Clone() *Record[P] {
	if r == nil {
		return nil
	}
	cp := *r
	if r.CreatedBy != nil {
		v := *r.CreatedBy
		cp.CreatedBy = &v
	}
	if r.ApprovedBy != nil {
		v := *r.ApprovedBy
		cp.ApprovedBy = &v
	}
	if r.ApprovedAt != nil {
		v := *r.ApprovedAt
		cp.ApprovedAt = &v
	}
	return &cp
}

// Item is a kind-erased view of a record used by cross-kind readers.
type Item struct {
	ID         uuid.UUID  `json:"id"`
	Kind       Kind       `json:"kind"`
	Status     Status     `json:"status"`
	Payload    AnyPayload `json:"payload"`
	Version    int64      `json:"version"`
	CreatedBy  *uuid.UUID `json:"createdBy,omitempty"`
	ApprovedBy *uuid.UUID `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func ItemOf[P AnyPayload](r *Record[P]) Item {
	c := r.Clone()
	return Item{
		ID:         c.ID,
		Kind:       c.Payload.Kind(),
		Status:     c.Status,
		Payload:    c.Payload,
		Version:    c.Version,
		CreatedBy:  c.CreatedBy,
		ApprovedBy: c.ApprovedBy,
		ApprovedAt: c.ApprovedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type FindParams struct {
	Statuses  []Status
	UniqueKey string
	Limit     int
	Offset    int
}

// Matches reports whether r passes the in-memory equivalent of the filter.
func (p *FindParams) Matches(status Status, uniqueKey string) bool {
	if p == nil {
		return true
	}
	if len(p.Statuses) > 0 {
		found := false
		for _, s := range p.Statuses {
			if s == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if p.UniqueKey != "" && p.UniqueKey != uniqueKey {
		return false
	}
	return true
}

// Repository is the storage contract every kind binds to. Implementations
// must enforce UniqueKey and Ranged overlap atomically and treat Update and
// Delete as conditional writes on the expected version.
type Repository[P AnyPayload] interface {
	Create(ctx context.Context, rec *Record[P]) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record[P], error)
	List(ctx context.Context, params *FindParams) ([]*Record[P], error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	Update(ctx context.Context, rec *Record[P], expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error
}
