package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/services"
	"github.com/iota-uz/payroll-config/pkg/httpapi"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

const defaultAuditPageSize = 50

// PayrollAPIController exposes the read side of the engine: the approval
// dashboard and the audit trail.
type PayrollAPIController struct {
	dashboard *services.ApprovalDashboard
	audit     *services.AuditService
	apiPrefix string
}

func NewPayrollAPIController(dashboard *services.ApprovalDashboard, audit *services.AuditService) *PayrollAPIController {
	return &PayrollAPIController{
		dashboard: dashboard,
		audit:     audit,
		apiPrefix: "/payroll/api",
	}
}

func (c *PayrollAPIController) Key() string {
	return c.apiPrefix
}

func (c *PayrollAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.HandleFunc("/approvals/pending", c.GetPending).Methods(http.MethodGet)
	api.HandleFunc("/approvals/approved", c.GetApproved).Methods(http.MethodGet)
	api.HandleFunc("/company-settings/active", c.GetActiveCompanySettings).Methods(http.MethodGet)
	api.HandleFunc("/audit", c.ListAudit).Methods(http.MethodGet)
}

func (c *PayrollAPIController) GetPending(w http.ResponseWriter, r *http.Request) {
	summary, err := c.dashboard.GetPending(r.Context())
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, summary)
}

func (c *PayrollAPIController) GetApproved(w http.ResponseWriter, r *http.Request) {
	summary, err := c.dashboard.GetAllApproved(r.Context())
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, summary)
}

func (c *PayrollAPIController) GetActiveCompanySettings(w http.ResponseWriter, r *http.Request) {
	item, found, err := c.dashboard.ActiveCompanySettings(r.Context())
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	if !found {
		_ = httpapi.WriteServiceError(w, serrors.NewNotFoundError(string(configuration.KindCompanySettings), "active"))
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, item)
}

type auditListResponse struct {
	Entries []*auditlog.Entry `json:"entries"`
	Total   int64             `json:"total"`
}

func (c *PayrollAPIController) ListAudit(w http.ResponseWriter, r *http.Request) {
	params, err := parseAuditParams(r)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	entries, err := c.audit.Query(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	total, err := c.audit.Count(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &auditListResponse{Entries: entries, Total: total})
}

func parseAuditParams(r *http.Request) (*auditlog.FindParams, error) {
	q := r.URL.Query()
	params := &auditlog.FindParams{Limit: defaultAuditPageSize}

	if v := strings.TrimSpace(q.Get("entity_type")); v != "" {
		kind := configuration.Kind(strings.ToLower(v))
		if !kind.IsValid() {
			return nil, serrors.NewValidationError("audit_log", "entity_type", "oneof", v)
		}
		params.EntityType = kind
	}
	if v := strings.TrimSpace(q.Get("action")); v != "" {
		action := auditlog.Action(strings.ToUpper(v))
		if !action.IsValid() {
			return nil, serrors.NewValidationError("audit_log", "action", "oneof", v)
		}
		params.Action = action
	}
	for field, dst := range map[string]**uuid.UUID{"entity_id": &params.EntityID, "actor_id": &params.ActorID} {
		v := strings.TrimSpace(q.Get(field))
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, serrors.NewValidationError("audit_log", field, "uuid", v)
		}
		*dst = &id
	}
	for field, dst := range map[string]**time.Time{"from": &params.From, "to": &params.To} {
		v := strings.TrimSpace(q.Get(field))
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, serrors.NewValidationError("audit_log", field, "rfc3339", v)
		}
		*dst = &ts
	}
	for field, dst := range map[string]*int{"limit": &params.Limit, "offset": &params.Offset} {
		v := strings.TrimSpace(q.Get(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, serrors.NewValidationError("audit_log", field, "gte=0", v)
		}
		*dst = n
	}
	return params, nil
}
