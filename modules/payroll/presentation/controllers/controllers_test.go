package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/actor"
	cfg "github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence"
	"github.com/iota-uz/payroll-config/modules/payroll/services"
	"github.com/iota-uz/payroll-config/pkg/httpapi"
)

type fixture struct {
	router     *mux.Router
	lifecycles *services.Lifecycles
	admin      actor.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	admin := actor.Authenticated(uuid.New(), actor.WithPrivilege())
	audit := services.NewAuditService(
		persistence.NewMemoryAuditLogRepository(),
		persistence.NewMemoryIdentityDirectory(admin.ID()),
	)
	lifecycles := services.NewLifecycles(services.Repositories{
		PayGrades:           persistence.NewMemoryConfigurationRepository[cfg.PayGrade](),
		Allowances:          persistence.NewMemoryConfigurationRepository[cfg.Allowance](),
		TaxRules:            persistence.NewMemoryConfigurationRepository[cfg.TaxRule](),
		InsuranceBrackets:   persistence.NewMemoryConfigurationRepository[cfg.InsuranceBracket](),
		PayrollPolicies:     persistence.NewMemoryConfigurationRepository[cfg.PayrollPolicy](),
		SigningBonuses:      persistence.NewMemoryConfigurationRepository[cfg.SigningBonus](),
		PayTypes:            persistence.NewMemoryConfigurationRepository[cfg.PayType](),
		TerminationBenefits: persistence.NewMemoryConfigurationRepository[cfg.TerminationBenefit](),
		CompanySettings:     persistence.NewMemoryConfigurationRepository[cfg.CompanySettings](),
	}, services.Dependencies{Audit: audit, Logger: logger})

	r := mux.NewRouter()
	NewPayrollAPIController(services.NewApprovalDashboard(2, lifecycles.Sources()...), audit).Register(r)
	NewHealthController(nil).Register(r)
	return &fixture{router: r, lifecycles: lifecycles, admin: admin}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestPayrollAPI_PendingAndApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.lifecycles.Allowances.Create(ctx, cfg.Allowance{Name: "Meal", Amount: decimal.NewFromInt(100)}, f.admin)
	require.NoError(t, err)
	_, err = f.lifecycles.Allowances.Create(ctx, cfg.Allowance{Name: "Transport", Amount: decimal.NewFromInt(50)}, f.admin)
	require.NoError(t, err)
	_, err = f.lifecycles.Allowances.Approve(ctx, rec.ID, f.admin, "ok")
	require.NoError(t, err)

	var pending struct {
		Total int `json:"total"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/payroll/api/approvals/pending", &pending))
	require.Equal(t, 1, pending.Total)

	var approved struct {
		Total int `json:"total"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/payroll/api/approvals/approved", &approved))
	require.Equal(t, 1, approved.Total)
}

func TestPayrollAPI_ActiveCompanySettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var env httpapi.ErrorEnvelope
	require.Equal(t, http.StatusNotFound, f.get(t, "/payroll/api/company-settings/active", &env))

	rec, err := f.lifecycles.CompanySettings.Create(ctx, cfg.CompanySettings{PayDate: "2026-03-25", TimeZone: "Africa/Cairo", Currency: "EGP"}, f.admin)
	require.NoError(t, err)
	_, err = f.lifecycles.CompanySettings.Approve(ctx, rec.ID, f.admin, "")
	require.NoError(t, err)

	var item struct {
		ID   uuid.UUID `json:"id"`
		Kind string    `json:"kind"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/payroll/api/company-settings/active", &item))
	require.Equal(t, rec.ID, item.ID)
	require.Equal(t, string(cfg.KindCompanySettings), item.Kind)
}

func TestPayrollAPI_AuditFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.lifecycles.PayTypes.Create(ctx, cfg.PayType{Type: "monthly", Amount: decimal.NewFromInt(6000)}, f.admin)
	require.NoError(t, err)
	_, err = f.lifecycles.PayTypes.Approve(ctx, rec.ID, f.admin, "")
	require.NoError(t, err)

	var resp auditListResponse
	require.Equal(t, http.StatusOK, f.get(t, "/payroll/api/audit?entity_type=pay_type&entity_id="+rec.ID.String(), &resp))
	require.EqualValues(t, 2, resp.Total)
	require.Len(t, resp.Entries, 2)

	require.Equal(t, http.StatusOK, f.get(t, "/payroll/api/audit?action=approve&limit=10", &resp))
	require.EqualValues(t, 1, resp.Total)

	var env httpapi.ErrorEnvelope
	require.Equal(t, http.StatusNotFound, f.get(t, "/payroll/api/audit?actor_id="+uuid.NewString(), &env))
	require.Equal(t, http.StatusBadRequest, f.get(t, "/payroll/api/audit?entity_type=bogus", &env))
	require.Equal(t, "entity_type", env.Meta["field"])
	require.Equal(t, http.StatusBadRequest, f.get(t, "/payroll/api/audit?limit=-1", &env))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthController(t *testing.T) {
	f := newFixture(t)
	var body healthResponse
	require.Equal(t, http.StatusOK, f.get(t, "/health", &body))
	require.Equal(t, "memory", body.Database)

	r := mux.NewRouter()
	NewHealthController(stubPinger{err: errors.New("down")}).Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
