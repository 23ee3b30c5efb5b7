package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/auditlog"
	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
	"github.com/iota-uz/payroll-config/modules/payroll/infrastructure/persistence/models"
)

func toDBConfiguration[P configuration.AnyPayload](rec *configuration.Record[P]) (*models.ConfigurationRecord, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payload")
	}
	m := &models.ConfigurationRecord{
		ID:         rec.ID,
		Kind:       rec.Payload.Kind().String(),
		Status:     string(rec.Status),
		Payload:    payload,
		Version:    rec.Version,
		CreatedBy:  rec.CreatedBy,
		ApprovedBy: rec.ApprovedBy,
		ApprovedAt: rec.ApprovedAt,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if key := rec.Payload.UniqueKey(); key != "" {
		m.UniqueKey = &key
	}
	if ranged, ok := any(rec.Payload).(configuration.Ranged); ok {
		rangeKey := ranged.RangeKey()
		lower, upper := ranged.SalaryRange()
		bounds := fmt.Sprintf("[%s,%s]", lower.String(), upper.String())
		m.RangeKey = &rangeKey
		m.SalaryRange = &bounds
	}
	return m, nil
}

func toDomainConfiguration[P configuration.AnyPayload](m *models.ConfigurationRecord) (*configuration.Record[P], error) {
	var payload P
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to unmarshal %s payload of %s", m.Kind, m.ID))
	}
	return &configuration.Record[P]{
		ID:         m.ID,
		Status:     configuration.Status(m.Status),
		Payload:    payload,
		Version:    m.Version,
		CreatedBy:  m.CreatedBy,
		ApprovedBy: m.ApprovedBy,
		ApprovedAt: m.ApprovedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

func toDBAuditLog(entry *auditlog.Entry) (*models.AuditLog, error) {
	m := &models.AuditLog{
		ID:         entry.ID,
		EntityType: entry.EntityType.String(),
		EntityID:   entry.EntityID,
		Action:     string(entry.Action),
		ActorID:    entry.ActorID,
		Reason:     entry.Reason,
		CreatedAt:  entry.Timestamp,
	}
	var err error
	if entry.Before != nil {
		if m.Before, err = json.Marshal(entry.Before); err != nil {
			return nil, errors.Wrap(err, "failed to marshal before snapshot")
		}
	}
	if entry.After != nil {
		if m.After, err = json.Marshal(entry.After); err != nil {
			return nil, errors.Wrap(err, "failed to marshal after snapshot")
		}
	}
	if len(entry.Changes) > 0 {
		if m.Changes, err = json.Marshal(entry.Changes); err != nil {
			return nil, errors.Wrap(err, "failed to marshal changes")
		}
	}
	return m, nil
}

func toDomainAuditLog(m *models.AuditLog) (*auditlog.Entry, error) {
	entry := &auditlog.Entry{
		ID:         m.ID,
		EntityType: configuration.Kind(m.EntityType),
		EntityID:   m.EntityID,
		Action:     auditlog.Action(m.Action),
		ActorID:    m.ActorID,
		Timestamp:  m.CreatedAt,
		Reason:     m.Reason,
	}
	if len(m.Before) > 0 {
		entry.Before = &auditlog.Snapshot{}
		if err := json.Unmarshal(m.Before, entry.Before); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to unmarshal before snapshot of audit entry %d", m.ID))
		}
	}
	if len(m.After) > 0 {
		entry.After = &auditlog.Snapshot{}
		if err := json.Unmarshal(m.After, entry.After); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to unmarshal after snapshot of audit entry %d", m.ID))
		}
	}
	if len(m.Changes) > 0 {
		if err := json.Unmarshal(m.Changes, &entry.Changes); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to unmarshal changes of audit entry %d", m.ID))
		}
	}
	return entry, nil
}
