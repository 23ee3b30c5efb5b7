package configuration

import (
	"encoding/json"
	"fmt"
)

// DecodePayload unmarshals raw into the concrete payload type for kind.
func DecodePayload(kind Kind, raw []byte) (AnyPayload, error) {
	switch kind {
	case KindPayGrade:
		return decodeAs[PayGrade](raw)
	case KindAllowance:
		return decodeAs[Allowance](raw)
	case KindTaxRule:
		return decodeAs[TaxRule](raw)
	case KindInsuranceBracket:
		return decodeAs[InsuranceBracket](raw)
	case KindPayrollPolicy:
		return decodeAs[PayrollPolicy](raw)
	case KindSigningBonus:
		return decodeAs[SigningBonus](raw)
	case KindPayType:
		return decodeAs[PayType](raw)
	case KindTerminationBenefit:
		return decodeAs[TerminationBenefit](raw)
	case KindCompanySettings:
		return decodeAs[CompanySettings](raw)
	default:
		return nil, fmt.Errorf("unknown configuration kind %q", kind)
	}
}

func decodeAs[P AnyPayload](raw []byte) (AnyPayload, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
