package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(12.34), GBP)
		require.NoError(t, err)
		assert.Equal(t, "12.34", m.StringFixed(2))
		assert.Equal(t, GBP, m.Currency())
	})

	t.Run("rejects empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "currency")
	})

	t.Run("parses string amounts", func(t *testing.T) {
		m, err := NewMoneyFromString("19.99", USD)
		require.NoError(t, err)
		assert.Equal(t, "19.99", m.StringFixed(2))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("rejects malformed string amounts", func(t *testing.T) {
		_, err := NewMoneyFromString("nineteen", GBP)
		require.Error(t, err)
	})

	t.Run("zero helpers", func(t *testing.T) {
		assert.True(t, ZeroGBP().IsZero())
		assert.Equal(t, EUR, Zero(EUR).Currency())
	})
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("adds matching currencies", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(10.50)
		b := NewMoneyGBPFromFloat(4.25)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, "14.75", sum.StringFixed(2))
	})

	t.Run("rejects cross-currency addition", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(10)
		b, err := NewMoneyFromString("10", USD)
		require.NoError(t, err)
		_, err = a.Add(b)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different currencies")
	})

	t.Run("subtracts matching currencies", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(10)
		b := NewMoneyGBPFromFloat(12.50)
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.IsNegative())
		assert.Equal(t, "-2.50", diff.StringFixed(2))
	})

	t.Run("must helpers panic on currency mismatch", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(1)
		b, err := NewMoneyFromString("1", EUR)
		require.NoError(t, err)
		assert.Panics(t, func() { a.MustAdd(b) })
		assert.Panics(t, func() { a.MustSubtract(b) })
	})

	t.Run("multiplies by quantity", func(t *testing.T) {
		unit := NewMoneyGBPFromFloat(3.33)
		total := unit.MultiplyByInt(3)
		assert.Equal(t, "9.99", total.StringFixed(2))
	})

	t.Run("rounds to places", func(t *testing.T) {
		m, err := NewMoneyFromString("1.005", GBP)
		require.NoError(t, err)
		assert.Equal(t, "1.01", m.Round(2).StringFixed(2))
	})
}

func TestMoneyComparison(t *testing.T) {
	t.Run("equals requires amount and currency", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(5)
		b, err := NewMoneyFromString("5.00", GBP)
		require.NoError(t, err)
		c, err := NewMoneyFromString("5", USD)
		require.NoError(t, err)
		assert.True(t, a.Equals(b))
		assert.False(t, a.Equals(c))
	})

	t.Run("orders matching currencies", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(5)
		b := NewMoneyGBPFromFloat(7)
		less, err := a.LessThan(b)
		require.NoError(t, err)
		assert.True(t, less)
		greater, err := b.GreaterThan(a)
		require.NoError(t, err)
		assert.True(t, greater)
	})

	t.Run("rejects cross-currency comparison", func(t *testing.T) {
		a := NewMoneyGBPFromFloat(5)
		b, err := NewMoneyFromString("5", EUR)
		require.NoError(t, err)
		_, err = a.LessThan(b)
		require.Error(t, err)
		_, err = a.GreaterThan(b)
		require.Error(t, err)
	})
}

func TestMoneyMinorUnits(t *testing.T) {
	t.Run("converts to pence", func(t *testing.T) {
		assert.Equal(t, int64(1234), NewMoneyGBPFromFloat(12.34).MinorUnits())
	})

	t.Run("rounds sub-penny amounts", func(t *testing.T) {
		m, err := NewMoneyFromString("0.005", GBP)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.MinorUnits())
	})

	t.Run("zero amount", func(t *testing.T) {
		assert.Equal(t, int64(0), ZeroGBP().MinorUnits())
	})
}

func TestMoneyJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		original := NewMoneyGBPFromFloat(42.10)
		data, err := json.Marshal(original)
		require.NoError(t, err)

		var restored Money
		require.NoError(t, json.Unmarshal(data, &restored))
		assert.True(t, original.Equals(restored))
	})

	t.Run("empty amount restores as zero", func(t *testing.T) {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"","currency":"GBP"}`), &m))
		assert.True(t, m.IsZero())
	})

	t.Run("missing currency defaults", func(t *testing.T) {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"3.50"}`), &m))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("rejects malformed amount", func(t *testing.T) {
		var m Money
		err := json.Unmarshal([]byte(`{"amount":"oops","currency":"GBP"}`), &m)
		require.Error(t, err)
	})
}

func TestWeight(t *testing.T) {
	t.Run("creates from decimal grams", func(t *testing.T) {
		w, err := NewWeight(decimal.NewFromFloat(1499.6))
		require.NoError(t, err)
		assert.Equal(t, int64(1500), w.GramsInt())
	})

	t.Run("creates from grams", func(t *testing.T) {
		w, err := NewWeightFromGrams(250)
		require.NoError(t, err)
		assert.False(t, w.IsZero())
		assert.Equal(t, int64(250), w.GramsInt())
	})

	t.Run("rejects negative weight", func(t *testing.T) {
		_, err := NewWeightFromGrams(-1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})

	t.Run("accumulates and scales", func(t *testing.T) {
		a, err := NewWeightFromGrams(100)
		require.NoError(t, err)
		b, err := NewWeightFromGrams(40)
		require.NoError(t, err)
		assert.Equal(t, int64(140), a.Add(b).GramsInt())
		assert.Equal(t, int64(300), a.MultiplyByInt(3).GramsInt())
	})

	t.Run("zero weight", func(t *testing.T) {
		assert.True(t, ZeroWeight().IsZero())
	})
}
