package validators

import (
	"time"

	"github.com/shopspring/decimal"

	cfg "github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
)

// Validator checks a candidate payload against the kind's business rules.
// existing holds every other record of the kind, in any status.
type Validator[P cfg.AnyPayload] interface {
	Validate(candidate P, existing []*cfg.Record[P]) error
}

// Func adapts a function to Validator.
type Func[P cfg.AnyPayload] func(candidate P, existing []*cfg.Record[P]) error

func (f Func[P]) Validate(candidate P, existing []*cfg.Record[P]) error {
	return f(candidate, existing)
}

func NewPayGradeValidator() Validator[cfg.PayGrade] {
	return Func[cfg.PayGrade](func(p cfg.PayGrade, existing []*cfg.Record[cfg.PayGrade]) error {
		k := cfg.KindPayGrade
		return firstError(
			func() error { return Struct(k, p) },
			func() error { return AtLeast(k, "baseSalary", p.BaseSalary, MinimumSalary) },
			func() error { return AtLeast(k, "grossSalary", p.GrossSalary, MinimumSalary) },
			func() error { return NotLessThan(k, "grossSalary", p.GrossSalary, "baseSalary", p.BaseSalary) },
			func() error { return Unique("grade", p, existing) },
		)
	})
}

func NewAllowanceValidator() Validator[cfg.Allowance] {
	return Func[cfg.Allowance](func(a cfg.Allowance, existing []*cfg.Record[cfg.Allowance]) error {
		k := cfg.KindAllowance
		return firstError(
			func() error { return Struct(k, a) },
			func() error { return NonNegative(k, "amount", a.Amount) },
			func() error { return Unique("name", a, existing) },
		)
	})
}

func NewTaxRuleValidator() Validator[cfg.TaxRule] {
	return Func[cfg.TaxRule](func(t cfg.TaxRule, existing []*cfg.Record[cfg.TaxRule]) error {
		k := cfg.KindTaxRule
		return firstError(
			func() error { return Struct(k, t) },
			func() error { return Percentage(k, "rate", t.Rate) },
			func() error { return Unique("name", t, existing) },
		)
	})
}

func NewInsuranceBracketValidator() Validator[cfg.InsuranceBracket] {
	return Func[cfg.InsuranceBracket](func(b cfg.InsuranceBracket, existing []*cfg.Record[cfg.InsuranceBracket]) error {
		k := cfg.KindInsuranceBracket
		return firstError(
			func() error { return Struct(k, b) },
			func() error { return NonNegative(k, "minSalary", b.MinSalary) },
			func() error { return NonNegative(k, "maxSalary", b.MaxSalary) },
			func() error { return NotLessThan(k, "maxSalary", b.MaxSalary, "minSalary", b.MinSalary) },
			func() error { return Percentage(k, "employeeRate", b.EmployeeRate) },
			func() error { return Percentage(k, "employerRate", b.EmployerRate) },
			func() error {
				return SumAtMost(k, "employeeRate+employerRate", decimal.NewFromInt(100), b.EmployeeRate, b.EmployerRate)
			},
			func() error { return NoRangeOverlap("minSalary", b, existing) },
		)
	})
}

// ChangeValidator is implemented by validators whose rules depend on what
// the stored payload already held. The lifecycle uses it for update and
// submit in place of Validate.
type ChangeValidator[P cfg.AnyPayload] interface {
	ValidateChange(stored, candidate P, existing []*cfg.Record[P]) error
}

type payrollPolicyValidator struct {
	now func() time.Time
}

// NewPayrollPolicyValidator requires the effective date to be in the future
// when a policy is created or its date is changed. An unchanged date that has
// since passed does not block edits to other fields.
func NewPayrollPolicyValidator(now func() time.Time) Validator[cfg.PayrollPolicy] {
	if now == nil {
		now = time.Now
	}
	return &payrollPolicyValidator{now: now}
}

func (v *payrollPolicyValidator) Validate(p cfg.PayrollPolicy, existing []*cfg.Record[cfg.PayrollPolicy]) error {
	return v.check(p, true, existing)
}

func (v *payrollPolicyValidator) ValidateChange(stored, p cfg.PayrollPolicy, existing []*cfg.Record[cfg.PayrollPolicy]) error {
	return v.check(p, !p.EffectiveDate.Equal(stored.EffectiveDate), existing)
}

func (v *payrollPolicyValidator) check(p cfg.PayrollPolicy, checkDate bool, existing []*cfg.Record[cfg.PayrollPolicy]) error {
	k := cfg.KindPayrollPolicy
	return firstError(
		func() error { return Struct(k, p) },
		func() error {
			if !checkDate {
				return nil
			}
			return After(k, "effectiveDate", p.EffectiveDate, v.now())
		},
		func() error { return Unique("policyName", p, existing) },
	)
}

func NewSigningBonusValidator() Validator[cfg.SigningBonus] {
	return Func[cfg.SigningBonus](func(s cfg.SigningBonus, existing []*cfg.Record[cfg.SigningBonus]) error {
		k := cfg.KindSigningBonus
		return firstError(
			func() error { return Struct(k, s) },
			func() error { return NonNegative(k, "amount", s.Amount) },
			func() error { return Unique("positionName", s, existing) },
		)
	})
}

// NewPayTypeValidator expects the type already lowercased by Normalized.
func NewPayTypeValidator() Validator[cfg.PayType] {
	return Func[cfg.PayType](func(p cfg.PayType, existing []*cfg.Record[cfg.PayType]) error {
		k := cfg.KindPayType
		p = p.Normalized()
		return firstError(
			func() error { return Struct(k, p) },
			func() error { return AtLeast(k, "amount", p.Amount, MinimumSalary) },
			func() error { return Unique("type", p, existing) },
		)
	})
}

func NewTerminationBenefitValidator() Validator[cfg.TerminationBenefit] {
	return Func[cfg.TerminationBenefit](func(t cfg.TerminationBenefit, existing []*cfg.Record[cfg.TerminationBenefit]) error {
		k := cfg.KindTerminationBenefit
		return firstError(
			func() error { return NotBlank(k, "name", t.Name) },
			func() error { return NonNegative(k, "amount", t.Amount) },
			func() error { return Unique("name", t, existing) },
		)
	})
}

const RequiredCurrency = "EGP"

// NewCompanySettingsValidator has no cross-record rule: several drafts may
// coexist.
func NewCompanySettingsValidator() Validator[cfg.CompanySettings] {
	return Func[cfg.CompanySettings](func(c cfg.CompanySettings, _ []*cfg.Record[cfg.CompanySettings]) error {
		k := cfg.KindCompanySettings
		return firstError(
			func() error { return Struct(k, c) },
			func() error { return Equals(k, "currency", c.Currency, RequiredCurrency) },
			func() error { return TimeZone(k, "timeZone", c.TimeZone) },
			func() error { return ParsesAsDate(k, "payDate", c.PayDate) },
		)
	})
}
