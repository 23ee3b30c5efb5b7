package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/payroll-config/modules/payroll/domain/entities/configuration"
)

// KindSource is the kind-erased read side of a lifecycle binding.
type KindSource interface {
	Kind() configuration.Kind
	ListByStatus(ctx context.Context, status configuration.Status) ([]configuration.Item, error)
}

type KindSummary struct {
	Kind  configuration.Kind   `json:"kind"`
	Count int                  `json:"count"`
	Items []configuration.Item `json:"items"`
}

// ApprovalSummary is a live projection; it is never stored.
type ApprovalSummary struct {
	Kinds []KindSummary `json:"kinds"`
	Total int           `json:"total"`
}

// ByKind returns the summary for kind, or an empty one.
func (s *ApprovalSummary) ByKind(kind configuration.Kind) KindSummary {
	for _, k := range s.Kinds {
		if k.Kind == kind {
			return k
		}
	}
	return KindSummary{Kind: kind}
}

type ApprovalDashboard struct {
	sources     []KindSource
	concurrency int
}

func NewApprovalDashboard(concurrency int, sources ...KindSource) *ApprovalDashboard {
	if concurrency <= 0 {
		concurrency = len(sources)
	}
	return &ApprovalDashboard{sources: sources, concurrency: concurrency}
}

// GetPending lists DRAFT records of every kind.
func (d *ApprovalDashboard) GetPending(ctx context.Context) (*ApprovalSummary, error) {
	summary, err := d.collect(ctx, configuration.StatusDraft)
	if err != nil {
		return nil, err
	}
	for _, k := range summary.Kinds {
		recordPending(k.Kind, k.Count)
	}
	return summary, nil
}

// GetAllApproved is the only read path payroll execution uses.
func (d *ApprovalDashboard) GetAllApproved(ctx context.Context) (*ApprovalSummary, error) {
	return d.collect(ctx, configuration.StatusApproved)
}

// ActiveCompanySettings returns the approved settings record with the latest
// approval time. found is false when none is approved.
func (d *ApprovalDashboard) ActiveCompanySettings(ctx context.Context) (item configuration.Item, found bool, err error) {
	for _, src := range d.sources {
		if src.Kind() != configuration.KindCompanySettings {
			continue
		}
		items, err := src.ListByStatus(ctx, configuration.StatusApproved)
		if err != nil {
			return configuration.Item{}, false, err
		}
		for _, candidate := range items {
			if candidate.ApprovedAt == nil {
				continue
			}
			if !found || candidate.ApprovedAt.After(*item.ApprovedAt) {
				item, found = candidate, true
			}
		}
		return item, found, nil
	}
	return configuration.Item{}, false, nil
}

func (d *ApprovalDashboard) collect(ctx context.Context, status configuration.Status) (*ApprovalSummary, error) {
	ctx, span := tracer.Start(ctx, "payroll.dashboard.collect",
		trace.WithAttributes(attribute.String("payroll.status", string(status))))
	defer span.End()

	results := make([]KindSummary, len(d.sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, src := range d.sources {
		g.Go(func() error {
			items, err := src.ListByStatus(gctx, status)
			if err != nil {
				return err
			}
			results[i] = KindSummary{Kind: src.Kind(), Count: len(items), Items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	summary := &ApprovalSummary{Kinds: results}
	for _, k := range results {
		summary.Total += k.Count
	}
	return summary, nil
}
