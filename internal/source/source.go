// Package source defines the adapter contract and the per-segment
// registry of upstream data sources.
package source

import (
	"context"
	"time"

	"StockPulse/internal/domain/models"
)

// Adapter is one upstream provider endpoint. Fetch performs exactly
// one call and reshapes the response into a best-effort RawTable:
// an empty table means "no data", an error means a transport or
// unexpected failure. Retries belong to the fetch layer, never here.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, code, start, end string) (models.RawTable, error)
}

// Func adapts a plain function to the Adapter interface, used for
// test doubles and one-off wrappers.
type Func struct {
	AdapterName string
	FetchFunc   func(ctx context.Context, code, start, end string) (models.RawTable, error)
}

func (f Func) Name() string { return f.AdapterName }

func (f Func) Fetch(ctx context.Context, code, start, end string) (models.RawTable, error) {
	return f.FetchFunc(ctx, code, start, end)
}

// Descriptor is the static configuration of one source within a
// segment's candidate list. Lower priority is tried first.
type Descriptor struct {
	Name        string
	Priority    int
	MinInterval time.Duration
	MaxRetries  int
	Timeout     time.Duration
	// Spot marks adapters whose output is a single converted quote
	// row rather than a historical range; validation uses the spot
	// row floor for them.
	Spot bool
	// Overrides holds provider-specific column-alias exceptions
	// layered over the canonical alias table.
	Overrides map[string]string
	Adapter   Adapter
}
