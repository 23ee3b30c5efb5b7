package services

import (
	"context"
	"fmt"
	"time"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/actor"
	cfg "github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/validators"
)

type (
	PayGradeService           = LifecycleService[cfg.PayGrade]
	AllowanceService          = LifecycleService[cfg.Allowance]
	TaxRuleService            = LifecycleService[cfg.TaxRule]
	InsuranceBracketService   = LifecycleService[cfg.InsuranceBracket]
	PayrollPolicyService      = LifecycleService[cfg.PayrollPolicy]
	SigningBonusService       = LifecycleService[cfg.SigningBonus]
	PayTypeService            = LifecycleService[cfg.PayType]
	TerminationBenefitService = LifecycleService[cfg.TerminationBenefit]
	CompanySettingsService    = LifecycleService[cfg.CompanySettings]
)

// Repositories holds one storage binding per kind.
type Repositories struct {
	PayGrades           cfg.Repository[cfg.PayGrade]
	Allowances          cfg.Repository[cfg.Allowance]
	TaxRules            cfg.Repository[cfg.TaxRule]
	InsuranceBrackets   cfg.Repository[cfg.InsuranceBracket]
	PayrollPolicies     cfg.Repository[cfg.PayrollPolicy]
	SigningBonuses      cfg.Repository[cfg.SigningBonus]
	PayTypes            cfg.Repository[cfg.PayType]
	TerminationBenefits cfg.Repository[cfg.TerminationBenefit]
	CompanySettings     cfg.Repository[cfg.CompanySettings]
}

// Lifecycles is the set of nine kind bindings.
type Lifecycles struct {
	PayGrades           *PayGradeService
	Allowances          *AllowanceService
	TaxRules            *TaxRuleService
	InsuranceBrackets   *InsuranceBracketService
	PayrollPolicies     *PayrollPolicyService
	SigningBonuses      *SigningBonusService
	PayTypes            *PayTypeService
	TerminationBenefits *TerminationBenefitService
	CompanySettings     *CompanySettingsService
}

func NewLifecycles(repos Repositories, deps Dependencies) *Lifecycles {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Lifecycles{
		PayGrades: NewLifecycleService(Descriptor[cfg.PayGrade]{
			Kind: cfg.KindPayGrade, Validator: validators.NewPayGradeValidator(), Repository: repos.PayGrades,
		}, deps),
		Allowances: NewLifecycleService(Descriptor[cfg.Allowance]{
			Kind: cfg.KindAllowance, Validator: validators.NewAllowanceValidator(), Repository: repos.Allowances,
		}, deps),
		TaxRules: NewLifecycleService(Descriptor[cfg.TaxRule]{
			Kind: cfg.KindTaxRule, Validator: validators.NewTaxRuleValidator(), Repository: repos.TaxRules,
		}, deps),
		InsuranceBrackets: NewLifecycleService(Descriptor[cfg.InsuranceBracket]{
			Kind: cfg.KindInsuranceBracket, Validator: validators.NewInsuranceBracketValidator(), Repository: repos.InsuranceBrackets,
		}, deps),
		PayrollPolicies: NewLifecycleService(Descriptor[cfg.PayrollPolicy]{
			Kind: cfg.KindPayrollPolicy, Validator: validators.NewPayrollPolicyValidator(now), Repository: repos.PayrollPolicies,
		}, deps),
		SigningBonuses: NewLifecycleService(Descriptor[cfg.SigningBonus]{
			Kind: cfg.KindSigningBonus, Validator: validators.NewSigningBonusValidator(), Repository: repos.SigningBonuses,
		}, deps),
		PayTypes: NewLifecycleService(Descriptor[cfg.PayType]{
			Kind: cfg.KindPayType, Validator: validators.NewPayTypeValidator(), Repository: repos.PayTypes,
		}, deps),
		TerminationBenefits: NewLifecycleService(Descriptor[cfg.TerminationBenefit]{
			Kind: cfg.KindTerminationBenefit, Validator: validators.NewTerminationBenefitValidator(), Repository: repos.TerminationBenefits,
		}, deps),
		CompanySettings: NewLifecycleService(Descriptor[cfg.CompanySettings]{
			Kind: cfg.KindCompanySettings, Validator: validators.NewCompanySettingsValidator(), Repository: repos.CompanySettings,
		}, deps),
	}
}

// Sources returns the bindings in dashboard display order.
func (l *Lifecycles) Sources() []KindSource {
	return []KindSource{
		l.PayGrades,
		l.Allowances,
		l.TaxRules,
		l.InsuranceBrackets,
		l.PayrollPolicies,
		l.SigningBonuses,
		l.PayTypes,
		l.TerminationBenefits,
		l.CompanySettings,
	}
}

// CreateAny routes a kind-erased payload to its binding.
func (l *Lifecycles) CreateAny(ctx context.Context, payload cfg.AnyPayload, createdBy actor.Actor) (cfg.Item, error) {
	switch p := payload.(type) {
	case cfg.PayGrade:
		return createItem(ctx, l.PayGrades, p, createdBy)
	case cfg.Allowance:
		return createItem(ctx, l.Allowances, p, createdBy)
	case cfg.TaxRule:
		return createItem(ctx, l.TaxRules, p, createdBy)
	case cfg.InsuranceBracket:
		return createItem(ctx, l.InsuranceBrackets, p, createdBy)
	case cfg.PayrollPolicy:
		return createItem(ctx, l.PayrollPolicies, p, createdBy)
	case cfg.SigningBonus:
		return createItem(ctx, l.SigningBonuses, p, createdBy)
	case cfg.PayType:
		return createItem(ctx, l.PayTypes, p, createdBy)
	case cfg.TerminationBenefit:
		return createItem(ctx, l.TerminationBenefits, p, createdBy)
	case cfg.CompanySettings:
		return createItem(ctx, l.CompanySettings, p, createdBy)
	default:
		return cfg.Item{}, fmt.Errorf("unsupported payload %T", payload)
	}
}

func createItem[P cfg.Payload[P]](ctx context.Context, svc *LifecycleService[P], p P, createdBy actor.Actor) (cfg.Item, error) {
	rec, err := svc.Create(ctx, p, createdBy)
	if rec == nil {
		return cfg.Item{}, err
	}
	return cfg.ItemOf(rec), err
}
