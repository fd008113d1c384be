package currency

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable set of FX rates against a base currency.
// The base currency has an implicit rate of 1.
type Snapshot struct {
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
}

// snapshotJSON is the wire shape used both by the rate provider payload and
// the Redis cache entry.
type snapshotJSON struct {
	Base      string                 `json:"base"`
	Rates     map[string]json.Number `json:"rates"`
	Timestamp int64                  `json:"timestamp"`
}

// ParseSnapshot decodes a provider payload. Rates are kept as
// arbitrary-precision decimals; float64 round-trips are never used.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode rate snapshot: %w", err)
	}
	if raw.Base == "" {
		return nil, fmt.Errorf("rate snapshot has no base currency")
	}

	rates := make(map[string]decimal.Decimal, len(raw.Rates))
	for code, num := range raw.Rates {
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		if d.Sign() <= 0 {
			return nil, fmt.Errorf("rate for %s is not positive", code)
		}
		rates[code] = d
	}

	fetched := time.Now()
	if raw.Timestamp > 0 {
		fetched = time.Unix(raw.Timestamp, 0)
	}

	return &Snapshot{Base: raw.Base, Rates: rates, FetchedAt: fetched}, nil
}

// MarshalJSON serializes the snapshot back into the provider wire shape so
// cached and fresh snapshots are interchangeable.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	raw := snapshotJSON{
		Base:      s.Base,
		Rates:     make(map[string]json.Number, len(s.Rates)),
		Timestamp: s.FetchedAt.Unix(),
	}
	for code, d := range s.Rates {
		raw.Rates[code] = json.Number(d.String())
	}
	return json.Marshal(raw)
}

// Contains reports whether code is the base currency or has a known rate.
func (s *Snapshot) Contains(code string) bool {
	if code == s.Base {
		return true
	}
	_, ok := s.Rates[code]
	return ok
}
