package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/payroll-config/pkg/constants"
)

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the request logger stored in ctx or fallback when none is set.
func UseLogger(ctx context.Context, fallback *logrus.Entry) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
