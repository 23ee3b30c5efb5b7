package services

import (
	"context"
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/actor"
	cfg "github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
)

// SeedFile is a YAML list of draft configuration records:
//
//	records:
//	  - kind: allowance
//	    payload: {name: Meal, amount: "100"}
//	  - kind: payroll_policy
//	    payload: {policyName: Overtime, policyType: hours, effectiveDate: 2027-01-01}
//
// Policy dates may be written as YYYY-MM-DD or as RFC 3339 timestamps.
type SeedFile struct {
	Records []SeedRecord `yaml:"records"`
}

type SeedRecord struct {
	Kind    cfg.Kind       `yaml:"kind"`
	Payload map[string]any `yaml:"payload"`
}

// ParseSeed decodes and type-checks every record before anything is written.
func ParseSeed(r io.Reader) ([]cfg.AnyPayload, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode seed")
	}

	payloads := make([]cfg.AnyPayload, 0, len(file.Records))
	for i, rec := range file.Records {
		raw, err := json.Marshal(rec.Payload)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		p, err := cfg.DecodePayload(rec.Kind, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// Seed creates each payload as a DRAFT in order and stops at the first
// failure. Records created before the failure are kept and returned.
func (l *Lifecycles) Seed(ctx context.Context, payloads []cfg.AnyPayload, createdBy actor.Actor) ([]cfg.Item, error) {
	items := make([]cfg.Item, 0, len(payloads))
	for i, p := range payloads {
		item, err := l.CreateAny(ctx, p, createdBy)
		if item.ID != uuid.Nil {
			items = append(items, item)
		}
		if err != nil {
			return items, errors.Wrapf(err, "seed record %d (%s)", i, p.Kind())
		}
	}
	return items, nil
}
