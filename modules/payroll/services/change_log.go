package services

import (
	"github.com/sirupsen/logrus"
)

// NewChangeLogger returns an event bus handler that writes one line per
// committed configuration change.
func NewChangeLogger(logger *logrus.Logger) func(*RecordChangedEvent) {
	return func(e *RecordChangedEvent) {
		fields := logrus.Fields{
			"kind":   e.Kind.String(),
			"action": string(e.Action),
		}
		if e.ActorID != nil {
			fields["actor"] = e.ActorID.String()
		}
		item := e.After
		if item == nil {
			item = e.Before
		}
		if item != nil {
			fields["entity_id"] = item.ID.String()
			fields["status"] = string(item.Status)
			fields["version"] = item.Version
		}
		if e.Before != nil && e.After != nil && e.Before.Status != e.After.Status {
			fields["from_status"] = string(e.Before.Status)
		}
		logger.WithFields(fields).Info("payroll configuration changed")
	}
}
