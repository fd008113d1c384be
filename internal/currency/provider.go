package currency

import (
	"context"
	_ "embed"
)

//go:embed rates.json
var stubRatesJSON []byte

// Provider fetches a fresh rate snapshot from an external source.
type Provider interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// StaticProvider serves the bundled rate snapshot. It stands in for a real
// rate feed in development and in tests; the refresher and converter treat
// it like any other provider.
type StaticProvider struct{}

// Fetch returns the bundled snapshot.
func (StaticProvider) Fetch(_ context.Context) (*Snapshot, error) {
	return ParseSnapshot(stubRatesJSON)
}
