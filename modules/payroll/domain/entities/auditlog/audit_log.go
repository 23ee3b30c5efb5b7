package auditlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
)

type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionApprove, ActionReject:
		return true
	}
	return false
}

// Entry is immutable once appended.
type Entry struct {
	ID         int64              `json:"id"`
	EntityType configuration.Kind `json:"entityType"`
	EntityID   uuid.UUID          `json:"entityId"`
	Action     Action             `json:"action"`
	ActorID    *uuid.UUID         `json:"actorId,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Before     *Snapshot          `json:"before,omitempty"`
	After      *Snapshot          `json:"after,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	Changes    jsondiff.Patch     `json:"changes,omitempty"`
}

func (e *Entry) Validate() error {
	if e == nil {
		return errors.New("audit entry is required")
	}
	if !e.EntityType.IsValid() {
		return errors.New("audit entry entity type is invalid")
	}
	if e.EntityID == uuid.Nil {
		return errors.New("audit entry entity id is required")
	}
	if !e.Action.IsValid() {
		return errors.New("audit entry action is invalid")
	}
	switch e.Action {
	case ActionCreate:
		if e.Before != nil || e.After == nil {
			return errors.New("create entries carry only an after snapshot")
		}
	case ActionDelete:
		if e.Before == nil || e.After != nil {
			return errors.New("delete entries carry only a before snapshot")
		}
	default:
		if e.Before == nil || e.After == nil {
			return errors.New("audit entry requires before and after snapshots")
		}
	}
	return nil
}

type FindParams struct {
	EntityType configuration.Kind
	EntityID   *uuid.UUID
	Action     Action
	ActorID    *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Matches is the in-memory equivalent of the repository filter.
func (p *FindParams) Matches(e *Entry) bool {
	if p == nil {
		return true
	}
	if p.EntityType != "" && p.EntityType != e.EntityType {
		return false
	}
	if p.EntityID != nil && *p.EntityID != e.EntityID {
		return false
	}
	if p.Action != "" && p.Action != e.Action {
		return false
	}
	if p.ActorID != nil && (e.ActorID == nil || *e.ActorID != *p.ActorID) {
		return false
	}
	if p.From != nil && !p.From.IsZero() && e.Timestamp.Before(*p.From) {
		return false
	}
	if p.To != nil && !p.To.IsZero() && e.Timestamp.After(*p.To) {
		return false
	}
	return true
}

// Repository is append-only: there is no update or delete.
// List returns entries newest first.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
