package configuration

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Kind identifies one of the payroll configuration entity kinds. It doubles
// as the audit entity type tag.
type Kind string

const (
	KindPayGrade           Kind = "pay_grade"
	KindAllowance          Kind = "allowance"
	KindTaxRule            Kind = "tax_rule"
	KindInsuranceBracket   Kind = "insurance_bracket"
	KindPayrollPolicy      Kind = "payroll_policy"
	KindSigningBonus       Kind = "signing_bonus"
	KindPayType            Kind = "pay_type"
	KindTerminationBenefit Kind = "termination_benefit"
	KindCompanySettings    Kind = "company_settings"
)

// AllKinds lists every kind in dashboard display order.
var AllKinds = []Kind{
	KindPayGrade,
	KindAllowance,
	KindTaxRule,
	KindInsuranceBracket,
	KindPayrollPolicy,
	KindSigningBonus,
	KindPayType,
	KindTerminationBenefit,
	KindCompanySettings,
}

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}
