package configuration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TaxRule struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
}

func (TaxRule) Kind() Kind          { return KindTaxRule }
func (t TaxRule) UniqueKey() string { return strings.TrimSpace(t.Name) }
func (t TaxRule) Normalized() TaxRule {
	t.Name = strings.TrimSpace(t.Name)
	return t
}

// InsuranceBracket names are not unique on their own: several brackets may
// share a name as long as their salary ranges do not overlap.
type InsuranceBracket struct {
	Name         string          `json:"name" validate:"required"`
	MinSalary    decimal.Decimal `json:"minSalary"`
	MaxSalary    decimal.Decimal `json:"maxSalary"`
	EmployeeRate decimal.Decimal `json:"employeeRate"`
	EmployerRate decimal.Decimal `json:"employerRate"`
}

func (InsuranceBracket) Kind() Kind        { return KindInsuranceBracket }
func (InsuranceBracket) UniqueKey() string { return "" }
func (b InsuranceBracket) Normalized() InsuranceBracket {
	b.Name = strings.TrimSpace(b.Name)
	return b
}
func (b InsuranceBracket) RangeKey() string { return strings.TrimSpace(b.Name) }
func (b InsuranceBracket) SalaryRange() (decimal.Decimal, decimal.Decimal) {
	return b.MinSalary, b.MaxSalary
}

type PayrollPolicy struct {
	PolicyName    string    `json:"policyName" validate:"required"`
	PolicyType    string    `json:"policyType" validate:"required"`
	Description   string    `json:"description,omitempty"`
	EffectiveDate time.Time `json:"effectiveDate"`
	Applicability string    `json:"applicability,omitempty"`
}

func (PayrollPolicy) Kind() Kind          { return KindPayrollPolicy }
func (p PayrollPolicy) UniqueKey() string { return strings.TrimSpace(p.PolicyName) }
func (p PayrollPolicy) Normalized() PayrollPolicy {
	p.PolicyName = strings.TrimSpace(p.PolicyName)
	p.PolicyType = strings.TrimSpace(p.PolicyType)
	p.EffectiveDate = p.EffectiveDate.UTC()
	return p
}

// effectiveDateLayouts are the accepted effectiveDate forms. A bare date is
// midnight UTC.
var effectiveDateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

type policyFields PayrollPolicy

// UnmarshalJSON accepts effectiveDate as a full timestamp or as YYYY-MM-DD.
// Unknown keys are rejected.
func (p *PayrollPolicy) UnmarshalJSON(data []byte) error {
	var aux struct {
		policyFields
		EffectiveDate *string `json:"effectiveDate"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*p = PayrollPolicy(aux.policyFields)
	p.EffectiveDate = time.Time{}
	if aux.EffectiveDate == nil || *aux.EffectiveDate == "" {
		return nil
	}
	for _, layout := range effectiveDateLayouts {
		if t, err := time.Parse(layout, *aux.EffectiveDate); err == nil {
			p.EffectiveDate = t
			return nil
		}
	}
	return fmt.Errorf("effectiveDate %q is neither RFC 3339 nor YYYY-MM-DD", *aux.EffectiveDate)
}

// CompanySettings has no unique key; the active one is the most recently
// approved.
type CompanySettings struct {
	PayDate  string `json:"payDate" validate:"required"`
	TimeZone string `json:"timeZone" validate:"required"`
	Currency string `json:"currency" validate:"required"`
}

func (CompanySettings) Kind() Kind        { return KindCompanySettings }
func (CompanySettings) UniqueKey() string { return "" }
func (c CompanySettings) Normalized() CompanySettings {
	c.PayDate = strings.TrimSpace(c.PayDate)
	c.TimeZone = strings.TrimSpace(c.TimeZone)
	c.Currency = strings.TrimSpace(c.Currency)
	return c
}
