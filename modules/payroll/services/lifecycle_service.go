package services

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/jsondiff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/actor"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/validators"
	"github.com/iota-uz/payroll-config/pkg/composables"
	"github.com/iota-uz/payroll-config/pkg/eventbus"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

var tracer = otel.Tracer("payroll-services")

// Descriptor binds one configuration kind to its validator and storage.
type Descriptor[P configuration.Payload[P]] struct {
	Kind       configuration.Kind
	Validator  validators.Validator[P]
	Repository configuration.Repository[P]
}

// Dependencies are shared by every kind binding.
type Dependencies struct {
	Audit     *AuditService
	Publisher eventbus.EventBus
	Logger    *logrus.Logger
	Now       func() time.Time
}

// RecordChangedEvent is published after every committed mutation, including
// degraded ones whose audit entry failed.
type RecordChangedEvent struct {
	Kind    configuration.Kind
	Action  auditlog.Action
	ActorID *uuid.UUID
	Before  *configuration.Item
	After   *configuration.Item
}

// LifecycleService drives the DRAFT/APPROVED/REJECTED state machine for one
// kind. All nine kinds share this implementation.
type LifecycleService[P configuration.Payload[P]] struct {
	kind      configuration.Kind
	validator validators.Validator[P]
	repo      configuration.Repository[P]
	audit     *AuditService
	publisher eventbus.EventBus
	logger    *logrus.Entry
	now       func() time.Time
}

func NewLifecycleService[P configuration.Payload[P]](desc Descriptor[P], deps Dependencies) *LifecycleService[P] {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &LifecycleService[P]{
		kind:      desc.Kind,
		validator: desc.Validator,
		repo:      desc.Repository,
		audit:     deps.Audit,
		publisher: deps.Publisher,
		logger:    logrus.NewEntry(logger).WithField("kind", desc.Kind.String()),
		now:       now,
	}
}

func (s *LifecycleService[P]) Kind() configuration.Kind { return s.kind }

func (s *LifecycleService[P]) GetByID(ctx context.Context, id uuid.UUID) (*configuration.Record[P], error) {
	return s.repo.GetByID(ctx, id)
}

func (s *LifecycleService[P]) List(ctx context.Context, params *configuration.FindParams) ([]*configuration.Record[P], error) {
	return s.repo.List(ctx, params)
}

func (s *LifecycleService[P]) Count(ctx context.Context, params *configuration.FindParams) (int64, error) {
	return s.repo.Count(ctx, params)
}

// ListByStatus returns kind-erased items for cross-kind readers.
func (s *LifecycleService[P]) ListByStatus(ctx context.Context, status configuration.Status) ([]configuration.Item, error) {
	records, err := s.repo.List(ctx, &configuration.FindParams{Statuses: []configuration.Status{status}})
	if err != nil {
		return nil, err
	}
	items := make([]configuration.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, configuration.ItemOf(rec))
	}
	return items, nil
}

func (s *LifecycleService[P]) Create(ctx context.Context, payload P, createdBy actor.Actor) (*configuration.Record[P], error) {
	ctx, span := s.startSpan(ctx, "create", uuid.Nil)
	defer span.End()

	payload = payload.Normalized()
	if err := s.validate(ctx, payload, uuid.Nil); err != nil {
		return nil, s.fail(span, err)
	}

	now := s.now()
	rec := &configuration.Record[P]{
		ID:        uuid.New(),
		Status:    configuration.StatusDraft,
		Payload:   payload,
		CreatedBy: createdBy.Ref(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, s.fail(span, err)
	}

	err := s.commit(ctx, auditlog.ActionCreate, createdBy, nil, rec, "", nil)
	return rec, s.fail(span, err)
}

// Submit re-runs validation on a DRAFT record. It changes nothing and writes
// no audit entry.
func (s *LifecycleService[P]) Submit(ctx context.Context, id uuid.UUID) (*configuration.Record[P], error) {
	ctx, span := s.startSpan(ctx, "submit", id)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if current.Status != configuration.StatusDraft {
		return nil, s.fail(span, serrors.NewStateConflictError(s.kind.String(), id.String(), "submit", string(current.Status)))
	}
	if err := s.validate(ctx, current.Payload, id); err != nil {
		return nil, s.fail(span, err)
	}
	return current, nil
}

func (s *LifecycleService[P]) Approve(ctx context.Context, id uuid.UUID, approver actor.Actor, comment string) (*configuration.Record[P], error) {
	ctx, span := s.startSpan(ctx, "approve", id)
	defer span.End()

	if approver.IsAnonymous() {
		return nil, s.fail(span, serrors.NewValidationError(s.kind.String(), "approvedBy", "authenticated", approver.String()).WithEntityID(id.String()))
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if current.Status == configuration.StatusApproved {
		return nil, s.fail(span, serrors.NewAlreadyInStatusError(s.kind.String(), id.String(), serrors.CodeAlreadyApproved, string(current.Status)))
	}

	approvedAt := s.now()
	next := current.Clone()
	next.Status = configuration.StatusApproved
	next.ApprovedBy = approver.Ref()
	next.ApprovedAt = &approvedAt
	if err := s.repo.Update(ctx, next, current.Version); err != nil {
		return nil, s.fail(span, err)
	}

	err = s.commit(ctx, auditlog.ActionApprove, approver, current, next, comment, nil)
	return next, s.fail(span, err)
}

// Reject moves a DRAFT or APPROVED record to REJECTED. Approval metadata is
// cleared so a rejected record never looks approved.
func (s *LifecycleService[P]) Reject(ctx context.Context, id uuid.UUID, rejectedBy actor.Actor, reason string) (*configuration.Record[P], error) {
	ctx, span := s.startSpan(ctx, "reject", id)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if current.Status == configuration.StatusRejected {
		return nil, s.fail(span, serrors.NewAlreadyInStatusError(s.kind.String(), id.String(), serrors.CodeAlreadyRejected, string(current.Status)))
	}

	next := current.Clone()
	next.Status = configuration.StatusRejected
	next.ApprovedBy = nil
	next.ApprovedAt = nil
	if err := s.repo.Update(ctx, next, current.Version); err != nil {
		return nil, s.fail(span, err)
	}

	err = s.commit(ctx, auditlog.ActionReject, rejectedBy, current, next, reason, nil)
	return next, s.fail(span, err)
}

// Update applies an RFC 7386 merge patch to the payload of a DRAFT record
// and re-validates the result in full.
func (s *LifecycleService[P]) Update(ctx context.Context, id uuid.UUID, patch json.RawMessage, updatedBy actor.Actor) (*configuration.Record[P], error) {
	ctx, span := s.startSpan(ctx, "update", id)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if current.Status != configuration.StatusDraft {
		return nil, s.fail(span, serrors.NewStateConflictError(s.kind.String(), id.String(), "update", string(current.Status)))
	}

	before, err := json.Marshal(current.Payload)
	if err != nil {
		return nil, s.fail(span, err)
	}
	merged, err := jsonpatch.MergePatch(before, patch)
	if err != nil {
		return nil, s.fail(span, serrors.NewValidationError(s.kind.String(), "payload", "merge_patch", string(patch)).WithEntityID(id.String()))
	}
	var payload P
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, s.fail(span, serrors.NewValidationError(s.kind.String(), "payload", "known_fields", err.Error()).WithEntityID(id.String()))
	}
	payload = payload.Normalized()

	changes, err := payloadChanges(current.Payload, payload)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if len(changes) == 0 {
		// Nothing to persist, audit or announce.
		return current, nil
	}
	if err := s.validate(ctx, payload, id); err != nil {
		return nil, s.fail(span, err)
	}

	next := current.Clone()
	next.Payload = payload
	if err := s.repo.Update(ctx, next, current.Version); err != nil {
		return nil, s.fail(span, err)
	}

	err = s.commit(ctx, auditlog.ActionUpdate, updatedBy, current, next, "", changes)
	return next, s.fail(span, err)
}

// Delete removes a DRAFT or REJECTED record. Deleting an APPROVED record
// requires a privileged actor.
func (s *LifecycleService[P]) Delete(ctx context.Context, id uuid.UUID, deletedBy actor.Actor) error {
	ctx, span := s.startSpan(ctx, "delete", id)
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.fail(span, err)
	}
	if current.Status == configuration.StatusApproved && !deletedBy.Privileged() {
		return s.fail(span, serrors.NewPrivilegeRequiredError(s.kind.String(), id.String(), "delete"))
	}
	if err := s.repo.Delete(ctx, id, current.Version); err != nil {
		return s.fail(span, err)
	}
	return s.fail(span, s.commit(ctx, auditlog.ActionDelete, deletedBy, current, nil, "", nil))
}

// validate runs the kind validator against every other record of the kind.
// When self is stored and the validator is change-aware, the stored payload
// is handed over as well.
func (s *LifecycleService[P]) validate(ctx context.Context, payload P, self uuid.UUID) error {
	all, err := s.repo.List(ctx, nil)
	if err != nil {
		return err
	}
	var stored *configuration.Record[P]
	others := all[:0]
	for _, rec := range all {
		if rec.ID == self {
			stored = rec
			continue
		}
		others = append(others, rec)
	}
	if cv, ok := s.validator.(validators.ChangeValidator[P]); ok && stored != nil {
		return cv.ValidateChange(stored.Payload, payload, others)
	}
	return s.validator.Validate(payload, others)
}

// commit audits and announces a mutation that is already persisted. A failed
// audit write is reported as *serrors.DegradedError.
func (s *LifecycleService[P]) commit(
	ctx context.Context,
	action auditlog.Action,
	by actor.Actor,
	before, after *configuration.Record[P],
	reason string,
	changes jsondiff.Patch,
) error {
	id := entityID(before, after)
	entry := &auditlog.Entry{
		EntityType: s.kind,
		EntityID:   id,
		Action:     action,
		ActorID:    by.Ref(),
		Timestamp:  s.now(),
		Before:     auditlog.SnapshotOf(before),
		After:      auditlog.SnapshotOf(after),
		Reason:     reason,
		Changes:    changes,
	}

	logger := composables.UseLogger(ctx, s.logger).WithFields(logrus.Fields{
		"kind":   s.kind.String(),
		"id":     id.String(),
		"action": string(action),
		"actor":  by.String(),
	})
	recordTransition(s.kind, action)

	var auditErr error
	if s.audit != nil {
		auditErr = s.audit.Record(ctx, entry)
	}
	if s.publisher != nil {
		s.publisher.Publish(&RecordChangedEvent{
			Kind:    s.kind,
			Action:  action,
			ActorID: by.Ref(),
			Before:  itemOrNil(before),
			After:   itemOrNil(after),
		})
	}
	if auditErr != nil {
		logger.WithError(auditErr).Warn("configuration changed but audit entry was not recorded")
		return serrors.NewDegradedError(s.kind.String(), id.String(), string(action), auditErr)
	}
	logger.Info("configuration changed")
	return nil
}

func (s *LifecycleService[P]) startSpan(ctx context.Context, op string, id uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("payroll.kind", s.kind.String())}
	if id != uuid.Nil {
		attrs = append(attrs, attribute.String("payroll.id", id.String()))
	}
	return tracer.Start(ctx, "payroll."+s.kind.String()+"."+op, trace.WithAttributes(attrs...))
}

// fail annotates span and metrics with err and returns it unchanged.
func (s *LifecycleService[P]) fail(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	if serrors.IsDegraded(err) {
		return err
	}
	span.SetStatus(codes.Error, err.Error())
	recordRejected(s.kind, err)
	return err
}

func payloadChanges[P any](before, after P) (jsondiff.Patch, error) {
	src, err := json.Marshal(before)
	if err != nil {
		return nil, err
	}
	dst, err := json.Marshal(after)
	if err != nil {
		return nil, err
	}
	return jsondiff.CompareJSON(src, dst)
}

func entityID[P configuration.AnyPayload](before, after *configuration.Record[P]) uuid.UUID {
	if after != nil {
		return after.ID
	}
	return before.ID
}

func itemOrNil[P configuration.AnyPayload](rec *configuration.Record[P]) *configuration.Item {
	if rec == nil {
		return nil
	}
	item := configuration.ItemOf(rec)
	return &item
}
