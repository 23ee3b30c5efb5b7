package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/pkg/composables"
)

// WorkTypeFullTime is the only work type eligible for a signing bonus.
const WorkTypeFullTime = "FULL_TIME"

// SigningBonusReader is the slice of the signing bonus binding the bridge needs.
type SigningBonusReader interface {
	List(ctx context.Context, params *configuration.FindParams) ([]*configuration.Record[configuration.SigningBonus], error)
}

// SigningBonusBridge answers onboarding questions about signing bonuses.
type SigningBonusBridge struct {
	bonuses SigningBonusReader
	logger  *logrus.Entry
}

func NewSigningBonusBridge(bonuses SigningBonusReader, logger *logrus.Logger) *SigningBonusBridge {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SigningBonusBridge{
		bonuses: bonuses,
		logger:  logrus.NewEntry(logger).WithField("component", "signing_bonus_bridge"),
	}
}

// FindApprovedBonus matches position names case-insensitively and exactly.
// A missing bonus is reported through found, not as an error.
func (b *SigningBonusBridge) FindApprovedBonus(
	ctx context.Context,
	positionName string,
) (rec *configuration.Record[configuration.SigningBonus], found bool, err error) {
	key := configuration.PositionKey(positionName)
	if key == "" {
		return nil, false, nil
	}
	records, err := b.bonuses.List(ctx, &configuration.FindParams{
		Statuses:  []configuration.Status{configuration.StatusApproved},
		UniqueKey: key,
		Limit:     1,
	})
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

func (b *SigningBonusBridge) IsEligible(ctx context.Context, positionName, workType string) (bool, error) {
	if !IsFullTime(workType) {
		return false, nil
	}
	_, found, err := b.FindApprovedBonus(ctx, positionName)
	if err != nil {
		return false, err
	}
	return found, nil
}

// ResolveForOnboarding never fails onboarding: bridge errors are logged and
// treated as "no bonus".
func (b *SigningBonusBridge) ResolveForOnboarding(
	ctx context.Context,
	positionName, workType string,
) (*configuration.Record[configuration.SigningBonus], bool) {
	if !IsFullTime(workType) {
		return nil, false
	}
	rec, found, err := b.FindApprovedBonus(ctx, positionName)
	if err != nil {
		composables.UseLogger(ctx, b.logger).WithError(err).WithFields(logrus.Fields{
			"position": positionName,
			"workType": workType,
		}).Warn("signing bonus lookup failed, skipping bonus")
		return nil, false
	}
	return rec, found
}

// IsFullTime accepts FULL_TIME, full-time and "Full Time".
func IsFullTime(workType string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(workType))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	return normalized == WorkTypeFullTime
}
