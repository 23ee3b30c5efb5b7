package configuration

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PayGrade struct {
	Grade       string          `json:"grade" validate:"required"`
	BaseSalary  decimal.Decimal `json:"baseSalary"`
	GrossSalary decimal.Decimal `json:"grossSalary"`
}

func (PayGrade) Kind() Kind          { return KindPayGrade }
func (p PayGrade) UniqueKey() string { return strings.TrimSpace(p.Grade) }
func (p PayGrade) Normalized() PayGrade {
	p.Grade = strings.TrimSpace(p.Grade)
	return p
}

type Allowance struct {
	Name   string          `json:"name" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

func (Allowance) Kind() Kind          { return KindAllowance }
func (a Allowance) UniqueKey() string { return strings.TrimSpace(a.Name) }
func (a Allowance) Normalized() Allowance {
	a.Name = strings.TrimSpace(a.Name)
	return a
}

// PayType types are stored lowercase.
const (
	PayTypeHourly        = "hourly"
	PayTypeDaily         = "daily"
	PayTypeWeekly        = "weekly"
	PayTypeMonthly       = "monthly"
	PayTypeContractBased = "contract-based"
)

type PayType struct {
	Type   string          `json:"type" validate:"required,oneof=hourly daily weekly monthly contract-based"`
	Amount decimal.Decimal `json:"amount"`
}

func (PayType) Kind() Kind          { return KindPayType }
func (p PayType) UniqueKey() string { return strings.ToLower(strings.TrimSpace(p.Type)) }
func (p PayType) Normalized() PayType {
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	return p
}

// SigningBonus is keyed by position; lookups ignore case.
type SigningBonus struct {
	PositionName string          `json:"positionName" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

func (SigningBonus) Kind() Kind { return KindSigningBonus }
func (s SigningBonus) UniqueKey() string {
	return PositionKey(s.PositionName)
}
func (s SigningBonus) Normalized() SigningBonus {
	s.PositionName = strings.TrimSpace(s.PositionName)
	return s
}

// PositionKey is the case-insensitive lookup key for a position name.
func PositionKey(positionName string) string {
	return strings.ToLower(strings.TrimSpace(positionName))
}

type TerminationBenefit struct {
	Name   string          `json:"name" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Terms  string          `json:"terms,omitempty"`
}

func (TerminationBenefit) Kind() Kind { return KindTerminationBenefit }
func (t TerminationBenefit) UniqueKey() string {
	return strings.ToLower(strings.TrimSpace(t.Name))
}
func (t TerminationBenefit) Normalized() TerminationBenefit {
	t.Name = strings.TrimSpace(t.Name)
	return t
}
