package currency

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Base: "EUR",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("2"),
			"GBP": decimal.RequireFromString("0.5"),
		},
		FetchedAt: time.Now(),
	}
}

func TestConverter_Convert(t *testing.T) {
	c := NewConverter(testSnapshot())

	tests := []struct {
		name  string
		from  string
		value string
		to    string
		want  string
	}{
		{"same currency", "USD", "10", "USD", "10"},
		{"from base", "EUR", "10", "USD", "20"},
		{"to base", "USD", "10", "EUR", "5"},
		{"cross currency", "USD", "10", "GBP", "2.5"},
		{"base to base", "EUR", "7.25", "EUR", "7.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(tt.from, decimal.RequireFromString(tt.value), tt.to)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestConverter_ConvertUnknownCurrency(t *testing.T) {
	c := NewConverter(testSnapshot())

	_, err := c.Convert("XXX", decimal.NewFromInt(1), "EUR")
	require.ErrorIs(t, err, ErrUnknownCurrency)

	_, err = c.Convert("EUR", decimal.NewFromInt(1), "XXX")
	require.ErrorIs(t, err, ErrUnknownCurrency)

	_, err = c.Convert("USD", decimal.NewFromInt(1), "XXX")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestConverter_IsValid(t *testing.T) {
	c := NewConverter(testSnapshot())

	assert.True(t, c.IsValid("EUR"))
	assert.True(t, c.IsValid("USD"))
	assert.False(t, c.IsValid("XXX"))
	assert.False(t, c.IsValid(""))
	assert.False(t, c.IsValid("usd"))
}

func TestConverter_Swap(t *testing.T) {
	c := NewConverter(testSnapshot())

	fresh := &Snapshot{
		Base: "EUR",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("4"),
		},
		FetchedAt: time.Now(),
	}
	c.Swap(fresh)

	got, err := c.Convert("EUR", decimal.NewFromInt(1), "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(4)))
	assert.False(t, c.IsValid("GBP"))
}

func TestConverter_DivisionRounding(t *testing.T) {
	c := NewConverter(&Snapshot{
		Base: "EUR",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("3"),
		},
		FetchedAt: time.Now(),
	})

	// 1/3 keeps 20 fractional digits.
	got, err := c.Convert("USD", decimal.NewFromInt(1), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.33333333333333333333", got.String())
}

func TestParseSnapshot(t *testing.T) {
	payload := []byte(`{"base":"EUR","timestamp":1669205840,"rates":{"USD":1.03455,"GBP":0.87}}`)

	snap, err := ParseSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, "EUR", snap.Base)
	assert.Equal(t, time.Unix(1669205840, 0), snap.FetchedAt)
	assert.True(t, snap.Rates["USD"].Equal(decimal.RequireFromString("1.03455")))
	assert.True(t, snap.Contains("EUR"))
	assert.True(t, snap.Contains("GBP"))
	assert.False(t, snap.Contains("JPY"))
}

func TestParseSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"no base", `{"rates":{"USD":1}}`},
		{"negative rate", `{"base":"EUR","rates":{"USD":-1}}`},
		{"zero rate", `{"base":"EUR","rates":{"USD":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSnapshot([]byte(tt.payload))
			require.Error(t, err)
		})
	}
}

func TestSnapshot_MarshalRoundTrip(t *testing.T) {
	snap := testSnapshot()

	data, err := snap.MarshalJSON()
	require.NoError(t, err)

	back, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap.Base, back.Base)
	require.Len(t, back.Rates, len(snap.Rates))
	for code, rate := range snap.Rates {
		assert.True(t, back.Rates[code].Equal(rate), "rate for %s", code)
	}
}

func TestStaticProvider(t *testing.T) {
	snap, err := StaticProvider{}.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "EUR", snap.Base)
	assert.Greater(t, len(snap.Rates), 100)
	assert.True(t, snap.Rates["USD"].Equal(decimal.RequireFromString("1.03455")))
	assert.True(t, snap.Contains("RUB"))
}
