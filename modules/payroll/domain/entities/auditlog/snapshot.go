package auditlog

import (
	"encoding/json"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
)

// Snapshot is a tagged union keyed by Kind: Payload always holds the
// concrete payload type of that kind.
type Snapshot struct {
	configuration.Item
}

func SnapshotOf[P configuration.AnyPayload](rec *configuration.Record[P]) *Snapshot {
	if rec == nil {
		return nil
	}
	return &Snapshot{Item: configuration.ItemOf(rec)}
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var env struct {
		configuration.Item
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	s.Item = env.Item
	s.Item.Payload = nil
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil
	}
	payload, err := configuration.DecodePayload(env.Kind, env.Payload)
	if err != nil {
		return err
	}
	s.Item.Payload = payload
	return nil
}

// PayloadAs returns the snapshot payload as P when the snapshot holds that kind.
func PayloadAs[P configuration.AnyPayload](s *Snapshot) (P, bool) {
	var zero P
	if s == nil || s.Payload == nil {
		return zero, false
	}
	p, ok := s.Payload.(P)
	return p, ok
}
