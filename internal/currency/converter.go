// Package currency converts amounts between currencies using a snapshot of
// FX rates against a base currency.
package currency

import (
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// convertScale is the number of fractional digits kept on divisions.
// Intermediate division happens two digits deeper, then rounds half-to-even.
const convertScale = 20

// ErrUnknownCurrency is returned when a conversion involves a currency code
// absent from the active snapshot.
var ErrUnknownCurrency = fmt.Errorf("unknown currency")

// Converter converts between currencies known to the active snapshot.
// The snapshot is swapped atomically by the refresher; a request observing
// the converter mid-swap sees either the old or the new snapshot, never a
// torn one.
type Converter struct {
	snap atomic.Pointer[Snapshot]
}

// NewConverter creates a converter seeded with the given snapshot.
func NewConverter(snap *Snapshot) *Converter {
	c := &Converter{}
	c.snap.Store(snap)
	return c
}

// Swap atomically replaces the active snapshot.
func (c *Converter) Swap(snap *Snapshot) {
	c.snap.Store(snap)
}

// Snapshot returns the active snapshot.
func (c *Converter) Snapshot() *Snapshot {
	return c.snap.Load()
}

// IsValid reports whether code is a known currency.
func (c *Converter) IsValid(code string) bool {
	return c.snap.Load().Contains(code)
}

// Convert converts value from one currency into another:
//
//	from == to    -> value
//	from == base  -> value * rates[to]
//	to == base    -> value / rates[from]
//	otherwise     -> value * rates[to] / rates[from]
//
// Both codes must be known; validate with IsValid first or handle
// ErrUnknownCurrency.
func (c *Converter) Convert(from string, value decimal.Decimal, to string) (decimal.Decimal, error) {
	snap := c.snap.Load()

	if from == to {
		return value, nil
	}

	if from == snap.Base {
		rate, ok := snap.Rates[to]
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
		}
		return value.Mul(rate), nil
	}

	fromRate, ok := snap.Rates[from]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}

	if to == snap.Base {
		return divide(value, fromRate), nil
	}

	toRate, ok := snap.Rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return divide(value.Mul(toRate), fromRate), nil
}

func divide(num, den decimal.Decimal) decimal.Decimal {
	return num.DivRound(den, convertScale+2).RoundBank(convertScale)
}
