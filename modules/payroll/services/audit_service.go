package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

// IdentityStore resolves actor references. It is owned by the identity
// module; the payroll engine only asks whether an id exists.
type IdentityStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type AuditService struct {
	repo       auditlog.Repository
	identities IdentityStore
	now        func() time.Time
}

func NewAuditService(repo auditlog.Repository, identities IdentityStore) *AuditService {
	return &AuditService{
		repo:       repo,
		identities: identities,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Record appends entry. Storage errors are returned to the caller.
func (s *AuditService) Record(ctx context.Context, entry *auditlog.Entry) error {
	if err := entry.Validate(); err != nil {
		return serrors.NewValidationError("audit_log", "entry", "well_formed", err.Error())
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		recordAuditFailure(entry.EntityType)
		return err
	}
	return nil
}

// Query filters the trail. An actor filter naming an unknown identity is a
// NotFound error rather than an empty result.
func (s *AuditService) Query(ctx context.Context, params *auditlog.FindParams) ([]*auditlog.Entry, error) {
	if err := s.resolveActor(ctx, params); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, params)
}

func (s *AuditService) Count(ctx context.Context, params *auditlog.FindParams) (int64, error) {
	if err := s.resolveActor(ctx, params); err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, params)
}

// QueryByEntity returns every entry for one record, newest first.
func (s *AuditService) QueryByEntity(ctx context.Context, kind configuration.Kind, id uuid.UUID) ([]*auditlog.Entry, error) {
	return s.repo.List(ctx, &auditlog.FindParams{EntityType: kind, EntityID: &id})
}

func (s *AuditService) resolveActor(ctx context.Context, params *auditlog.FindParams) error {
	if params == nil || params.ActorID == nil {
		return nil
	}
	if s.identities == nil {
		return serrors.NewNotFoundError("actor", params.ActorID.String())
	}
	ok, err := s.identities.Exists(ctx, *params.ActorID)
	if err != nil {
		return err
	}
	if !ok {
		return serrors.NewNotFoundError("actor", params.ActorID.String())
	}
	return nil
}
