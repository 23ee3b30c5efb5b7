package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/actor"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	cfg "github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence"
	"github.com/iota-uz/payroll-config/modules/payroll/validators"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

type testEnv struct {
	lifecycles *Lifecycles
	audit      *AuditService
	auditRepo  *persistence.MemoryAuditLogRepository
	identities *persistence.MemoryIdentityDirectory
	publisher  *stubPublisher
	dashboard  *ApprovalDashboard
	repos      Repositories
	clock      *stepClock
	admin      actor.Actor
	clerk      actor.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	env := &testEnv{
		auditRepo:  persistence.NewMemoryAuditLogRepository(),
		identities: persistence.NewMemoryIdentityDirectory(),
		publisher:  &stubPublisher{},
		clock:      &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		admin:      actor.Authenticated(uuid.New(), actor.WithPrivilege()),
		clerk:      actor.Authenticated(uuid.New()),
		repos: Repositories{
			PayGrades:           persistence.NewMemoryConfigurationRepository[cfg.PayGrade](),
			Allowances:          persistence.NewMemoryConfigurationRepository[cfg.Allowance](),
			TaxRules:            persistence.NewMemoryConfigurationRepository[cfg.TaxRule](),
			InsuranceBrackets:   persistence.NewMemoryConfigurationRepository[cfg.InsuranceBracket](),
			PayrollPolicies:     persistence.NewMemoryConfigurationRepository[cfg.PayrollPolicy](),
			SigningBonuses:      persistence.NewMemoryConfigurationRepository[cfg.SigningBonus](),
			PayTypes:            persistence.NewMemoryConfigurationRepository[cfg.PayType](),
			TerminationBenefits: persistence.NewMemoryConfigurationRepository[cfg.TerminationBenefit](),
			CompanySettings:     persistence.NewMemoryConfigurationRepository[cfg.CompanySettings](),
		},
	}
	env.identities.Add(env.admin.ID())
	env.identities.Add(env.clerk.ID())
	env.audit = NewAuditService(env.auditRepo, env.identities)
	env.lifecycles = NewLifecycles(env.repos, Dependencies{
		Audit:     env.audit,
		Publisher: env.publisher,
		Logger:    logger,
		Now:       env.clock.Now,
	})
	env.dashboard = NewApprovalDashboard(3, env.lifecycles.Sources()...)
	return env
}

func allowance(name string, amount int64) cfg.Allowance {
	return cfg.Allowance{Name: name, Amount: decimal.NewFromInt(amount)}
}

func bracket(name string, lower, upper, employee, employer int64) cfg.InsuranceBracket {
	return cfg.InsuranceBracket{
		Name:         name,
		MinSalary:    decimal.NewFromInt(lower),
		MaxSalary:    decimal.NewFromInt(upper),
		EmployeeRate: decimal.NewFromInt(employee),
		EmployerRate: decimal.NewFromInt(employer),
	}
}

func TestLifecycle_CreateStartsAsDraftAndAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.lifecycles.Allowances.Create(ctx, allowance("  Transport ", 500), env.clerk)
	require.NoError(t, err)
	require.Equal(t, cfg.StatusDraft, rec.Status)
	require.Equal(t, "Transport", rec.Payload.Name)
	require.Equal(t, env.clerk.ID(), *rec.CreatedBy)
	require.Nil(t, rec.ApprovedBy)

	entries, err := env.audit.QueryByEntity(ctx, cfg.KindAllowance, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, auditlog.ActionCreate, entries[0].Action)
	require.Nil(t, entries[0].Before)
	require.NotNil(t, entries[0].After)
	payload, ok := auditlog.PayloadAs[cfg.Allowance](entries[0].After)
	require.True(t, ok)
	require.Equal(t, "Transport", payload.Name)

	require.Len(t, env.publisher.events, 1)
	require.Equal(t, auditlog.ActionCreate, env.publisher.events[0].Action)
}

func TestLifecycle_DuplicateKeysAcrossStatuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	grade, err := env.lifecycles.PayGrades.Create(ctx, cfg.PayGrade{
		Grade: "Senior", BaseSalary: decimal.NewFromInt(7000), GrossSalary: decimal.NewFromInt(8000),
	}, env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.PayGrades.Approve(ctx, grade.ID, env.admin, "")
	require.NoError(t, err)

	_, err = env.lifecycles.PayGrades.Create(ctx, cfg.PayGrade{
		Grade: "Senior", BaseSalary: decimal.NewFromInt(9000), GrossSalary: decimal.NewFromInt(9000),
	}, env.clerk)
	require.ErrorIs(t, err, &serrors.Error{Kind: serrors.KindConflict, Code: serrors.CodeDuplicateKey})

	count, err := env.lifecycles.PayGrades.Count(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	_, err = env.lifecycles.SigningBonuses.Create(ctx, cfg.SigningBonus{PositionName: "Senior Developer", Amount: decimal.NewFromInt(1000)}, env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.SigningBonuses.Create(ctx, cfg.SigningBonus{PositionName: "senior developer", Amount: decimal.NewFromInt(2000)}, env.clerk)
	require.ErrorIs(t, err, serrors.ErrConflict)

	_, err = env.lifecycles.PayTypes.Create(ctx, cfg.PayType{Type: "Monthly", Amount: decimal.NewFromInt(7000)}, env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.PayTypes.Create(ctx, cfg.PayType{Type: "monthly", Amount: decimal.NewFromInt(8000)}, env.clerk)
	require.ErrorIs(t, err, serrors.ErrConflict)

	_, err = env.lifecycles.Allowances.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.Allowances.Create(ctx, allowance("meal", 100), env.clerk)
	require.NoError(t, err, "allowance names are case-sensitive")
}

func TestLifecycle_UpdateAndDeleteRequireDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.TaxRules

	rule, err := svc.Create(ctx, cfg.TaxRule{Name: "Income", Rate: decimal.NewFromInt(10)}, env.clerk)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, rule.ID, env.admin, "ok")
	require.NoError(t, err)

	_, err = svc.Update(ctx, rule.ID, []byte(`{"rate":"12"}`), env.clerk)
	require.ErrorIs(t, err, &serrors.Error{Kind: serrors.KindConflict, Code: serrors.CodeStateConflict})
	require.Contains(t, err.Error(), "APPROVED")

	_, err = svc.Reject(ctx, rule.ID, env.admin, "wrong rate")
	require.NoError(t, err)
	_, err = svc.Update(ctx, rule.ID, []byte(`{"rate":"12"}`), env.clerk)
	require.ErrorIs(t, err, serrors.ErrConflict)
	require.Contains(t, err.Error(), "REJECTED")

	_, err = svc.Submit(ctx, rule.ID)
	require.ErrorIs(t, err, serrors.ErrConflict)
}

func TestLifecycle_UpdateDraftWritesBeforeAndAfter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Housing", 1000), env.clerk)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, rec.ID, []byte(`{"amount":"1500"}`), env.clerk)
	require.NoError(t, err)
	require.Equal(t, "Housing", updated.Payload.Name)
	require.True(t, decimal.NewFromInt(1500).Equal(updated.Payload.Amount))
	require.Equal(t, rec.Version+1, updated.Version)

	entries, err := env.audit.QueryByEntity(ctx, cfg.KindAllowance, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	update := entries[0]
	require.Equal(t, auditlog.ActionUpdate, update.Action)
	before, _ := auditlog.PayloadAs[cfg.Allowance](update.Before)
	after, _ := auditlog.PayloadAs[cfg.Allowance](update.After)
	require.True(t, decimal.NewFromInt(1000).Equal(before.Amount))
	require.True(t, decimal.NewFromInt(1500).Equal(after.Amount))
	require.Len(t, update.Changes, 1)
	require.Equal(t, "/amount", update.Changes[0].Path)
}

func TestLifecycle_UpdateRevalidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	_, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	rec, err := svc.Create(ctx, allowance("Transport", 100), env.clerk)
	require.NoError(t, err)

	_, err = svc.Update(ctx, rec.ID, []byte(`{"amount":"-1"}`), env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation)

	_, err = svc.Update(ctx, rec.ID, []byte(`{"name":"Meal"}`), env.clerk)
	require.ErrorIs(t, err, serrors.ErrConflict)

	_, err = svc.Update(ctx, rec.ID, []byte(`not json`), env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation)

	_, err = svc.Update(ctx, rec.ID, []byte(`{"amount":"150"}`), env.clerk)
	require.NoError(t, err, "a record does not collide with itself")
}

func TestLifecycle_UpdateRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 10), env.clerk)
	require.NoError(t, err)
	published := len(env.publisher.events)

	_, err = svc.Update(ctx, rec.ID, []byte(`{"amonut":50}`), env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation)
	se, ok := serrors.AsError(err)
	require.True(t, ok)
	require.Equal(t, "payload", se.Field)
	require.Equal(t, "known_fields", se.Rule)

	stored, err := svc.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.Version, stored.Version)
	require.True(t, decimal.NewFromInt(10).Equal(stored.Payload.Amount))

	entries, err := env.audit.QueryByEntity(ctx, cfg.KindAllowance, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, env.publisher.events, published)
}

func TestLifecycle_UpdateWithoutChangesWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 10), env.clerk)
	require.NoError(t, err)

	same, err := svc.Update(ctx, rec.ID, []byte(`{"name":" Meal "}`), env.clerk)
	require.NoError(t, err)
	require.Equal(t, rec.Version, same.Version)

	count, err := env.audit.Count(ctx, &auditlog.FindParams{EntityID: &rec.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestLifecycle_PolicyDateCheckedOnlyWhenChanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.PayrollPolicies

	effective := env.clock.Now().Add(time.Hour)
	rec, err := svc.Create(ctx, cfg.PayrollPolicy{
		PolicyName:    "Overtime",
		PolicyType:    "overtime",
		EffectiveDate: effective,
	}, env.clerk)
	require.NoError(t, err)

	env.clock.set(effective.Add(24 * time.Hour))

	updated, err := svc.Update(ctx, rec.ID, []byte(`{"description":"weekends count double"}`), env.clerk)
	require.NoError(t, err)
	require.Equal(t, "weekends count double", updated.Payload.Description)

	_, err = svc.Submit(ctx, rec.ID)
	require.NoError(t, err)

	past := effective.Add(time.Hour).Format(time.RFC3339)
	_, err = svc.Update(ctx, rec.ID, []byte(`{"effectiveDate":"`+past+`"}`), env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation)
	se, ok := serrors.AsError(err)
	require.True(t, ok)
	require.Equal(t, "effectiveDate", se.Field)

	future := effective.Add(72 * time.Hour).Format(time.RFC3339)
	_, err = svc.Update(ctx, rec.ID, []byte(`{"effectiveDate":"`+future+`"}`), env.clerk)
	require.NoError(t, err)
}

func TestLifecycle_DeleteDraftAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.TerminationBenefits

	rec, err := svc.Create(ctx, cfg.TerminationBenefit{Name: "Severance", Amount: decimal.NewFromInt(100)}, env.clerk)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, rec.ID, env.clerk))

	_, err = svc.GetByID(ctx, rec.ID)
	require.ErrorIs(t, err, serrors.ErrNotFound)

	entries, err := env.audit.QueryByEntity(ctx, cfg.KindTerminationBenefit, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, auditlog.ActionDelete, entries[0].Action)
	require.NotNil(t, entries[0].Before)
	require.Nil(t, entries[0].After)
}

func TestLifecycle_DeleteApprovedNeedsPrivilege(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)

	err = svc.Delete(ctx, rec.ID, env.clerk)
	require.ErrorIs(t, err, &serrors.Error{Kind: serrors.KindValidation, Code: serrors.CodePrivilegeRequired})
	err = svc.Delete(ctx, rec.ID, actor.Anonymous())
	require.ErrorIs(t, err, serrors.ErrValidation)

	require.NoError(t, svc.Delete(ctx, rec.ID, env.admin))
}

func TestLifecycle_DeleteRejectedLikeDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, rec.ID, env.admin, "no")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, rec.ID, env.clerk))
}

func TestLifecycle_ApproveIsNotIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, rec.ID, env.admin, "looks right")
	require.NoError(t, err)
	require.Equal(t, cfg.StatusApproved, approved.Status)
	require.Equal(t, env.admin.ID(), *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	_, err = svc.Approve(ctx, rec.ID, env.admin, "again")
	require.ErrorIs(t, err, &serrors.Error{Kind: serrors.KindConflict, Code: serrors.CodeAlreadyApproved})

	entries, err := env.audit.QueryByEntity(ctx, cfg.KindAllowance, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "looks right", entries[0].Reason)
	require.Equal(t, cfg.StatusDraft, entries[0].Before.Status)
	require.Equal(t, cfg.StatusApproved, entries[0].After.Status)
}

func TestLifecycle_RejectTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, rec.ID, env.admin, "policy changed")
	require.NoError(t, err)
	require.Equal(t, cfg.StatusRejected, rejected.Status)
	require.Nil(t, rejected.ApprovedBy)
	require.Nil(t, rejected.ApprovedAt)

	_, err = svc.Reject(ctx, rec.ID, env.admin, "again")
	require.ErrorIs(t, err, &serrors.Error{Kind: serrors.KindConflict, Code: serrors.CodeAlreadyRejected})

	reapproved, err := svc.Approve(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)
	require.Equal(t, cfg.StatusApproved, reapproved.Status)
}

func TestLifecycle_ApproveRequiresAuthenticatedActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.lifecycles.Allowances.Create(ctx, allowance("Meal", 100), actor.Anonymous())
	require.NoError(t, err)
	require.Nil(t, rec.CreatedBy)

	_, err = env.lifecycles.Allowances.Approve(ctx, rec.ID, actor.Anonymous(), "")
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestLifecycle_MissingRecordIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.lifecycles.Allowances.Approve(ctx, uuid.New(), env.admin, "")
	require.ErrorIs(t, err, serrors.ErrNotFound)
	require.ErrorIs(t, env.lifecycles.Allowances.Delete(ctx, uuid.New(), env.admin), serrors.ErrNotFound)
}

func TestLifecycle_SubmitKeepsDraftWithoutAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.PayrollPolicies

	rec, err := svc.Create(ctx, cfg.PayrollPolicy{
		PolicyName:    "Overtime",
		PolicyType:    "overtime",
		EffectiveDate: env.clock.Now().Add(24 * time.Hour),
	}, env.clerk)
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, cfg.StatusDraft, submitted.Status)
	require.Equal(t, rec.Version, submitted.Version)

	count, err := env.audit.Count(ctx, &auditlog.FindParams{EntityID: &rec.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestLifecycle_InsuranceBracketOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.InsuranceBrackets

	existing, err := svc.Create(ctx, bracket("Social Insurance", 6000, 15000, 11, 18), env.clerk)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, existing.ID, env.admin, "")
	require.NoError(t, err)

	_, err = svc.Create(ctx, bracket("Social Insurance", 10000, 20000, 11, 18), env.clerk)
	require.ErrorIs(t, err, &serrors.Error{Kind: serrors.KindValidation, Code: serrors.CodeRangeOverlap})

	_, err = svc.Create(ctx, bracket("Social Insurance", 15000, 20000, 11, 18), env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation, "shared boundary overlaps")

	_, err = svc.Create(ctx, bracket("Social Insurance", 15001, 20000, 11, 18), env.clerk)
	require.NoError(t, err)
}

func TestLifecycle_InsuranceBracketRateSum(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.InsuranceBrackets

	_, err := svc.Create(ctx, bracket("Health", 0, 5000, 60, 41), env.clerk)
	var se *serrors.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, serrors.KindValidation, se.Kind)
	require.Equal(t, "employeeRate+employerRate", se.Field)

	_, err = svc.Create(ctx, bracket("Health", 0, 5000, 60, 40), env.clerk)
	require.NoError(t, err)
}

func TestLifecycle_PayGradeFloors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.PayGrades

	_, err := svc.Create(ctx, cfg.PayGrade{Grade: "A", BaseSalary: decimal.NewFromInt(5000), GrossSalary: decimal.NewFromInt(9000)}, env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation)

	_, err = svc.Create(ctx, cfg.PayGrade{Grade: "A", BaseSalary: decimal.NewFromInt(7000), GrossSalary: decimal.NewFromInt(6000)}, env.clerk)
	require.ErrorIs(t, err, serrors.ErrValidation)

	_, err = svc.Create(ctx, cfg.PayGrade{Grade: "A", BaseSalary: decimal.NewFromInt(7000), GrossSalary: decimal.NewFromInt(8000)}, env.clerk)
	require.NoError(t, err)
}

func TestLifecycle_ConcurrentApprovalsAdmitOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(ctx, rec.ID, env.admin, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	for _, err := range failures {
		require.ErrorIs(t, err, serrors.ErrConflict)
	}
	count, err := env.audit.Count(ctx, &auditlog.FindParams{EntityID: &rec.ID, Action: auditlog.ActionApprove})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestLifecycle_AuditFailureIsDegraded(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	repo := persistence.NewMemoryConfigurationRepository[cfg.Allowance]()
	failing := &failingAuditRepo{err: serrors.NewIOError("audit_log", "append", errors.New("disk full"))}
	svc := NewLifecycleService(Descriptor[cfg.Allowance]{
		Kind:       cfg.KindAllowance,
		Validator:  validators.NewAllowanceValidator(),
		Repository: repo,
	}, Dependencies{Audit: NewAuditService(failing, nil), Logger: logger})

	rec, err := svc.Create(context.Background(), allowance("Meal", 100), actor.Anonymous())
	require.Error(t, err)
	require.True(t, serrors.IsDegraded(err))
	require.ErrorIs(t, err, serrors.ErrIO)
	require.NotNil(t, rec)

	stored, getErr := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, getErr)
	require.Equal(t, cfg.StatusDraft, stored.Status)
}

func TestAuditService_QueryResolvesActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.lifecycles.Allowances.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.Allowances.Approve(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)

	adminID := env.admin.ID()
	entries, err := env.audit.Query(ctx, &auditlog.FindParams{ActorID: &adminID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, auditlog.ActionApprove, entries[0].Action)

	stranger := uuid.New()
	_, err = env.audit.Query(ctx, &auditlog.FindParams{ActorID: &stranger})
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestAuditService_EntriesMatchMutationCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.Allowances

	rec, err := svc.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	_, err = svc.Update(ctx, rec.ID, []byte(`{"amount":"120"}`), env.clerk)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, rec.ID)
	require.NoError(t, err)
	_, err = svc.Reject(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)

	entries, err := env.audit.QueryByEntity(ctx, cfg.KindAllowance, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	actions := make([]auditlog.Action, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	require.Equal(t, []auditlog.Action{
		auditlog.ActionApprove,
		auditlog.ActionReject,
		auditlog.ActionUpdate,
		auditlog.ActionCreate,
	}, actions)
}

func TestAuditService_RejectsMalformedEntry(t *testing.T) {
	svc := NewAuditService(persistence.NewMemoryAuditLogRepository(), nil)
	err := svc.Record(context.Background(), &auditlog.Entry{
		EntityType: cfg.KindAllowance,
		EntityID:   uuid.New(),
		Action:     auditlog.ActionUpdate,
	})
	require.ErrorIs(t, err, serrors.ErrValidation)
}

func TestApprovalDashboard_TotalMatchesPerKindCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.lifecycles.Allowances.Create(ctx, allowance("Meal", 100), env.clerk)
	require.NoError(t, err)
	approved, err := env.lifecycles.Allowances.Create(ctx, allowance("Transport", 100), env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.Allowances.Approve(ctx, approved.ID, env.admin, "")
	require.NoError(t, err)
	_, err = env.lifecycles.TaxRules.Create(ctx, cfg.TaxRule{Name: "Income", Rate: decimal.NewFromInt(10)}, env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.CompanySettings.Create(ctx, cfg.CompanySettings{PayDate: "2026-03-25", TimeZone: "Africa/Cairo", Currency: "EGP"}, env.clerk)
	require.NoError(t, err)
	_, err = env.lifecycles.CompanySettings.Create(ctx, cfg.CompanySettings{PayDate: "2026-04-25", TimeZone: "Africa/Cairo", Currency: "EGP"}, env.clerk)
	require.NoError(t, err)

	summary, err := env.dashboard.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Kinds, len(cfg.AllKinds))

	direct := 0
	for _, src := range env.lifecycles.Sources() {
		items, err := src.ListByStatus(ctx, cfg.StatusDraft)
		require.NoError(t, err)
		require.Equal(t, len(items), summary.ByKind(src.Kind()).Count)
		direct += len(items)
	}
	require.Equal(t, direct, summary.Total)
	require.Equal(t, 4, summary.Total)
	require.Equal(t, 1, summary.ByKind(cfg.KindAllowance).Count)
	require.Equal(t, 2, summary.ByKind(cfg.KindCompanySettings).Count)

	approvedSummary, err := env.dashboard.GetAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, approvedSummary.Total)
	require.Equal(t, approved.ID, approvedSummary.ByKind(cfg.KindAllowance).Items[0].ID)
}

func TestApprovalDashboard_PropagatesSourceErrors(t *testing.T) {
	boom := serrors.NewIOError("allowance", "list", errors.New("connection reset"))
	d := NewApprovalDashboard(2, failingSource{kind: cfg.KindAllowance, err: boom}, failingSource{kind: cfg.KindTaxRule})

	_, err := d.GetPending(context.Background())
	require.ErrorIs(t, err, serrors.ErrIO)
}

func TestApprovalDashboard_ActiveCompanySettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.CompanySettings

	_, found, err := env.dashboard.ActiveCompanySettings(ctx)
	require.NoError(t, err)
	require.False(t, found)

	first, err := svc.Create(ctx, cfg.CompanySettings{PayDate: "2026-03-25", TimeZone: "Africa/Cairo", Currency: "EGP"}, env.clerk)
	require.NoError(t, err)
	second, err := svc.Create(ctx, cfg.CompanySettings{PayDate: "2026-04-28", TimeZone: "Africa/Cairo", Currency: "EGP"}, env.clerk)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, second.ID, env.admin, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, first.ID, env.admin, "")
	require.NoError(t, err)

	active, found, err := env.dashboard.ActiveCompanySettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first.ID, active.ID)
	settings, ok := active.Payload.(cfg.CompanySettings)
	require.True(t, ok)
	require.Equal(t, "2026-03-25", settings.PayDate)
}

func TestSigningBonusBridge_Eligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.lifecycles.SigningBonuses
	bridge := NewSigningBonusBridge(svc, nil)

	rec, err := svc.Create(ctx, cfg.SigningBonus{PositionName: "Senior Developer", Amount: decimal.NewFromInt(5000)}, env.clerk)
	require.NoError(t, err)

	ok, err := bridge.IsEligible(ctx, "Senior Developer", "FULL_TIME")
	require.NoError(t, err)
	require.False(t, ok, "draft bonuses do not count")

	_, err = svc.Approve(ctx, rec.ID, env.admin, "")
	require.NoError(t, err)

	ok, err = bridge.IsEligible(ctx, "senior developer", "FULL_TIME")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = bridge.IsEligible(ctx, "Senior Developer", "PART_TIME")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = bridge.IsEligible(ctx, "Senior", "FULL_TIME")
	require.NoError(t, err)
	require.False(t, ok, "no partial matches")

	found, ok, err := bridge.FindApprovedBonus(ctx, "SENIOR DEVELOPER ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.ID, found.ID)

	_, ok, err = bridge.FindApprovedBonus(ctx, "Designer")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSigningBonusBridge_ResolveForOnboardingSwallowsErrors(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	bridge := NewSigningBonusBridge(failingBonusReader{err: errors.New("timeout")}, logger)

	rec, ok := bridge.ResolveForOnboarding(context.Background(), "Senior Developer", "full-time")
	require.False(t, ok)
	require.Nil(t, rec)

	_, err := bridge.IsEligible(context.Background(), "Senior Developer", "FULL_TIME")
	require.Error(t, err)
}

func TestIsFullTime(t *testing.T) {
	require.True(t, IsFullTime("FULL_TIME"))
	require.True(t, IsFullTime("full-time"))
	require.True(t, IsFullTime(" Full Time "))
	require.False(t, IsFullTime("PART_TIME"))
	require.False(t, IsFullTime(""))
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type stubPublisher struct {
	mu     sync.Mutex
	events []*RecordChangedEvent
}

func (s *stubPublisher) Publish(args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, arg := range args {
		if e, ok := arg.(*RecordChangedEvent); ok {
			s.events = append(s.events, e)
		}
	}
}

func (s *stubPublisher) Subscribe(handler interface{})   {}
func (s *stubPublisher) Unsubscribe(handler interface{}) {}
func (s *stubPublisher) Clear()                          {}
func (s *stubPublisher) SubscribersCount() int           { return 0 }

type failingAuditRepo struct {
	err error
}

func (r *failingAuditRepo) Append(context.Context, *auditlog.Entry) error { return r.err }
func (r *failingAuditRepo) List(context.Context, *auditlog.FindParams) ([]*auditlog.Entry, error) {
	return nil, r.err
}
func (r *failingAuditRepo) Count(context.Context, *auditlog.FindParams) (int64, error) {
	return 0, r.err
}

type failingSource struct {
	kind cfg.Kind
	err  error
}

func (s failingSource) Kind() cfg.Kind { return s.kind }
func (s failingSource) ListByStatus(context.Context, cfg.Status) ([]cfg.Item, error) {
	return nil, s.err
}

type failingBonusReader struct {
	err error
}

func (r failingBonusReader) List(context.Context, *cfg.FindParams) ([]*cfg.Record[cfg.SigningBonus], error) {
	return nil, r.err
}
