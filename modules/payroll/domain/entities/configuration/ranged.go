package configuration

import "github.com/shopspring/decimal"

// Ranged payloads own a salary interval that must not overlap another
// interval with the same RangeKey.
type Ranged interface {
	RangeKey() string
	SalaryRange() (lower, upper decimal.Decimal)
}

// RangesOverlap uses inclusive bounds on both ends, so [0,6000] and
// [6000,15000] overlap.
func RangesOverlap(aMin, aMax, bMin, bMax decimal.Decimal) bool {
	return aMin.LessThanOrEqual(bMax) && aMax.GreaterThanOrEqual(bMin)
}
