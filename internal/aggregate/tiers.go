package aggregate

import (
	"context"

	"github.com/david/contract-radar/internal/source"
	"github.com/david/contract-radar/internal/transform"
)

// Tier is one source chain link: a source client paired with its transform
// adapter, producing canonical records. The orchestrator only ever talks to
// tiers, never to raw client types.
type Tier interface {
	Name() string
	Fetch(ctx context.Context, q source.Query) ([]transform.Opportunity, int, error)
}

type samGovTier struct {
	client *source.SamGovClient
}

// NewSamGovTier wraps the primary client and its adapter.
func NewSamGovTier(c *source.SamGovClient) Tier {
	return samGovTier{client: c}
}

func (t samGovTier) Name() string { return "samgov" }

func (t samGovTier) Fetch(ctx context.Context, q source.Query) ([]transform.Opportunity, int, error) {
	recs, total, err := t.client.Search(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return transform.FromSamGov(recs), total, nil
}

type fpdsTier struct {
	client *source.FPDSClient
}

// NewFPDSTier wraps the award-feed fallback and its adapter.
func NewFPDSTier(c *source.FPDSClient) Tier {
	return fpdsTier{client: c}
}

func (t fpdsTier) Name() string { return "fpds" }

func (t fpdsTier) Fetch(ctx context.Context, q source.Query) ([]transform.Opportunity, int, error) {
	recs, total, err := t.client.Search(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return transform.FromFPDS(recs), total, nil
}

type usaSpendingTier struct {
	client *source.USASpendingClient
}

// NewUSASpendingTier wraps the spending-ledger fallback and its adapter.
func NewUSASpendingTier(c *source.USASpendingClient) Tier {
	return usaSpendingTier{client: c}
}

func (t usaSpendingTier) Name() string { return "usaspending" }

func (t usaSpendingTier) Fetch(ctx context.Context, q source.Query) ([]transform.Opportunity, int, error) {
	recs, total, err := t.client.Search(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return transform.FromUSASpending(recs), total, nil
}
