package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/pkg/serrors"
)

var (
	payrollTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Total number of successful configuration mutations broken down by kind and action.",
	}, []string{"kind", "action"})

	payrollRejectedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "lifecycle",
		Name:      "rejected_total",
		Help:      "Total number of lifecycle operations refused broken down by kind and error kind.",
	}, []string{"kind", "error"})

	payrollAuditFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Subsystem: "audit",
		Name:      "failures_total",
		Help:      "Total number of audit entries that could not be written.",
	}, []string{"kind"})

	payrollPending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "payroll",
		Subsystem: "dashboard",
		Name:      "pending",
		Help:      "DRAFT records per kind as of the last dashboard read.",
	}, []string{"kind"})
)

func recordTransition(kind configuration.Kind, action auditlog.Action) {
	payrollTransitions.WithLabelValues(kind.String(), string(action)).Inc()
}

func recordRejected(kind configuration.Kind, err error) {
	label := string(serrors.KindOf(err))
	if label == "" {
		label = "other"
	}
	payrollRejectedWrites.WithLabelValues(kind.String(), label).Inc()
}

func recordAuditFailure(kind configuration.Kind) {
	payrollAuditFailures.WithLabelValues(kind.String()).Inc()
}

func recordPending(kind configuration.Kind, count int) {
	payrollPending.WithLabelValues(kind.String()).Set(float64(count))
}
