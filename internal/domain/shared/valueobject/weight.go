package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Weight is a value object representing a physical weight in grams
// It is immutable - all operations return new Weight instances
type Weight struct {
	grams decimal.Decimal
}

// NewWeight creates a new Weight from a gram value
func NewWeight(grams decimal.Decimal) (Weight, error) {
	if grams.IsNegative() {
		return Weight{}, errors.New("weight cannot be negative")
	}
	return Weight{grams: grams}, nil
}

// NewWeightFromGrams creates a Weight from an integer gram value
func NewWeightFromGrams(grams int64) (Weight, error) {
	if grams < 0 {
		return Weight{}, errors.New("weight cannot be negative")
	}
	return Weight{grams: decimal.NewFromInt(grams)}, nil
}

// ZeroWeight returns a zero-value Weight
func ZeroWeight() Weight {
	return Weight{grams: decimal.Zero}
}

// Grams returns the weight in grams
func (w Weight) Grams() decimal.Decimal {
	return w.grams
}

// GramsInt returns the weight in whole grams, rounded to the nearest gram
func (w Weight) GramsInt() int64 {
	return w.grams.Round(0).IntPart()
}

// IsZero returns true if the weight is zero
func (w Weight) IsZero() bool {
	return w.grams.IsZero()
}

// Add returns a new Weight with the sum of both weights
func (w Weight) Add(other Weight) Weight {
	return Weight{grams: w.grams.Add(other.grams)}
}

// MultiplyByInt returns a new Weight multiplied by an integer
func (w Weight) MultiplyByInt(factor int64) Weight {
	return Weight{grams: w.grams.Mul(decimal.NewFromInt(factor))}
}

// Equals returns true if both weights are equal
func (w Weight) Equals(other Weight) bool {
	return w.grams.Equal(other.grams)
}

// String returns a string representation of the weight
func (w Weight) String() string {
	return fmt.Sprintf("%sg", w.grams.String())
}

// MarshalJSON implements json.Marshaler
func (w Weight) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.grams.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (w *Weight) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		w.grams = decimal.Zero
		return nil
	}
	grams, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid weight: %w", err)
	}
	if grams.IsNegative() {
		return errors.New("weight cannot be negative")
	}
	w.grams = grams
	return nil
}
