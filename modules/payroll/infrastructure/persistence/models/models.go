package models

import (
	"time"

	"github.com/google/uuid"
)

type ConfigurationRecord struct {
	ID          uuid.UUID
	Kind        string
	Status      string
	Payload     []byte
	UniqueKey   *string
	RangeKey    *string
	SalaryRange *string
	Version     int64
	CreatedBy   *uuid.UUID
	ApprovedBy  *uuid.UUID
	ApprovedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AuditLog struct {
	ID         int64
	EntityType string
	EntityID   uuid.UUID
	Action     string
	ActorID    *uuid.UUID
	Before     []byte
	After      []byte
	Reason     string
	Changes    []byte
	CreatedAt  time.Time
}
