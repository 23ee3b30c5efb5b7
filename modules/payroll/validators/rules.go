// Package validators holds the pure business-rule checks run before a
// payroll configuration record is written. Each kind composes the predicates
// in this file explicitly; nothing is inherited.
package validators

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

var (
	MinimumSalary = decimal.NewFromInt(6000)
	hundred       = decimal.NewFromInt(100)

	timeZonePattern = regexp.MustCompile(`^[A-Za-z]+(?:/[A-Za-z0-9_+\-]+)+$`)

	payDateLayouts = []string{time.RFC3339, "2006-01-02"}
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct runs the validate struct tags on payload and reports the first
// failing field.
func Struct(kind configuration.Kind, payload any) error {
	err := structValidator.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return serrors.NewValidationError(kind.String(), fe.Field(), rule, fe.Value())
	}
	return serrors.NewValidationError(kind.String(), "", "struct", err.Error())
}

func NotBlank(kind configuration.Kind, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return serrors.NewValidationError(kind.String(), field, "not_blank", value)
	}
	return nil
}

func AtLeast(kind configuration.Kind, field string, value, floor decimal.Decimal) error {
	if value.LessThan(floor) {
		return serrors.NewValidationError(kind.String(), field, "gte="+floor.String(), value.String())
	}
	return nil
}

func NonNegative(kind configuration.Kind, field string, value decimal.Decimal) error {
	return AtLeast(kind, field, value, decimal.Zero)
}

// Percentage accepts values in [0,100].
func Percentage(kind configuration.Kind, field string, value decimal.Decimal) error {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return serrors.NewValidationError(kind.String(), field, "between=0,100", value.String())
	}
	return nil
}

func NotLessThan(kind configuration.Kind, field string, value decimal.Decimal, otherField string, other decimal.Decimal) error {
	if value.LessThan(other) {
		return serrors.NewValidationError(kind.String(), field, "gte_field="+otherField, value.String())
	}
	return nil
}

func SumAtMost(kind configuration.Kind, field string, limit decimal.Decimal, values ...decimal.Decimal) error {
	sum := decimal.Sum(decimal.Zero, values...)
	if sum.GreaterThan(limit) {
		return serrors.NewValidationError(kind.String(), field, "sum_lte="+limit.String(), sum.String())
	}
	return nil
}

func After(kind configuration.Kind, field string, value, reference time.Time) error {
	if !value.After(reference) {
		return serrors.NewValidationError(kind.String(), field, "future_date", value.Format(time.RFC3339))
	}
	return nil
}

func Equals(kind configuration.Kind, field, value, want string) error {
	if value != want {
		return serrors.NewValidationError(kind.String(), field, "eq="+want, value)
	}
	return nil
}

// TimeZone accepts Area/Location identifiers such as Africa/Cairo.
func TimeZone(kind configuration.Kind, field, value string) error {
	if !timeZonePattern.MatchString(value) {
		return serrors.NewValidationError(kind.String(), field, "area_location", value)
	}
	return nil
}

func ParsesAsDate(kind configuration.Kind, field, value string) error {
	for _, layout := range payDateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return nil
		}
	}
	return serrors.NewValidationError(kind.String(), field, "date", value)
}

// Unique rejects candidate when any existing record shares its unique key.
// existing must not contain the record being updated.
func Unique[P configuration.AnyPayload](field string, candidate P, existing []*configuration.Record[P]) error {
	key := candidate.UniqueKey()
	if key == "" {
		return nil
	}
	for _, rec := range existing {
		if rec.Payload.UniqueKey() == key {
			return serrors.NewDuplicateError(candidate.Kind().String(), field, key)
		}
	}
	return nil
}

// NoRangeOverlap rejects candidate when an existing record with the same
// range key has an intersecting salary range.
func NoRangeOverlap[P interface {
	configuration.AnyPayload
	configuration.Ranged
}](field string, candidate P, existing []*configuration.Record[P]) error {
	key := candidate.RangeKey()
	lo, hi := candidate.SalaryRange()
	for _, rec := range existing {
		if rec.Payload.RangeKey() != key {
			continue
		}
		exLo, exHi := rec.Payload.SalaryRange()
		if configuration.RangesOverlap(lo, hi, exLo, exHi) {
			return serrors.NewOverlapError(
				candidate.Kind().String(),
				field,
				lo.String()+"-"+hi.String(),
				"salary range overlaps ["+exLo.String()+","+exHi.String()+"] of record "+rec.ID.String(),
			)
		}
	}
	return nil
}

// firstError returns the first non-nil check result; checks run lazily.
func firstError(checks ...func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
