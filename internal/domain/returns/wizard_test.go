package returns

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/domain/shipping"
)

func returnOrigin(t *testing.T) *shipping.Address {
	t.Helper()
	addr, err := shipping.NewAddress(shipping.AddressFields{
		Recipient:  "Ada Lovelace",
		Line1:      "12 Analytical Way",
		City:       "London",
		PostalCode: "SW1A 1AA",
		Country:    "GB",
	})
	require.NoError(t, err)
	addr.MarkValidated()
	return addr
}

func grams(t *testing.T, g int64) valueobject.Weight {
	t.Helper()
	w, err := valueobject.NewWeightFromGrams(g)
	require.NoError(t, err)
	return w
}

func testLines(t *testing.T) []OrderLine {
	t.Helper()
	return []OrderLine{
		{
			LineID:       uuid.New(),
			ItemRef:      "mug-01",
			Name:         "Mug",
			PurchasedQty: 3,
			UnitPrice:    valueobject.NewMoneyGBPFromFloat(4.50),
			UnitWeight:   grams(t, 300),
		},
		{
			LineID:          uuid.New(),
			ItemRef:         "tee-01",
			Name:            "Tee",
			PurchasedQty:    2,
			AlreadyReturned: 1,
			UnitPrice:       valueobject.NewMoneyGBPFromFloat(12),
			UnitWeight:      grams(t, 150),
		},
	}
}

func newTestWizard(t *testing.T) *Wizard {
	t.Helper()
	w, err := NewWizard("ord_1001", returnOrigin(t), testLines(t))
	require.NoError(t, err)
	return w
}

func TestOrderLineReturnableQty(t *testing.T) {
	line := OrderLine{PurchasedQty: 3, AlreadyReturned: 1}
	assert.Equal(t, int64(2), line.ReturnableQty())

	exhausted := OrderLine{PurchasedQty: 2, AlreadyReturned: 2}
	assert.Equal(t, int64(0), exhausted.ReturnableQty())

	over := OrderLine{PurchasedQty: 1, AlreadyReturned: 2}
	assert.Equal(t, int64(0), over.ReturnableQty())
}

func TestNewWizard(t *testing.T) {
	t.Run("starts on item selection", func(t *testing.T) {
		w := newTestWizard(t)
		assert.Equal(t, StepItemSelection, w.Current())
		assert.Len(t, w.Lines(), 2)
		assert.False(t, w.HasSelection())
		assert.False(t, w.IsCompleted())
	})

	t.Run("requires an order id", func(t *testing.T) {
		_, err := NewWizard("", returnOrigin(t), nil)
		require.Error(t, err)
	})

	t.Run("requires a return origin address", func(t *testing.T) {
		_, err := NewWizard("ord_1001", nil, nil)
		require.Error(t, err)
	})

	t.Run("does not alias the caller's line slice", func(t *testing.T) {
		lines := testLines(t)
		w, err := NewWizard("ord_1001", returnOrigin(t), lines)
		require.NoError(t, err)

		lines[0].AlreadyReturned = 99
		assert.Equal(t, int64(0), w.Lines()[0].AlreadyReturned)
	})
}

func TestWizardSelectItem(t *testing.T) {
	t.Run("selects within the returnable quantity", func(t *testing.T) {
		w := newTestWizard(t)
		lines := w.Lines()
		require.NoError(t, w.SelectItem(lines[0].LineID, 2))
		assert.True(t, w.HasSelection())
		assert.Equal(t, int64(2), w.Selections()[lines[0].LineID])
	})

	t.Run("rejects more than the returnable quantity", func(t *testing.T) {
		w := newTestWizard(t)
		lines := w.Lines()
		// tee-01 has one unit already returned
		err := w.SelectItem(lines[1].LineID, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "returnable quantity")
		require.NoError(t, w.SelectItem(lines[1].LineID, 1))
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		w := newTestWizard(t)
		require.Error(t, w.SelectItem(w.Lines()[0].LineID, 0))
	})

	t.Run("unknown line", func(t *testing.T) {
		w := newTestWizard(t)
		require.ErrorIs(t, w.SelectItem(uuid.New(), 1), shared.ErrNotFound)
	})

	t.Run("re-selecting replaces the quantity", func(t *testing.T) {
		w := newTestWizard(t)
		id := w.Lines()[0].LineID
		require.NoError(t, w.SelectItem(id, 1))
		require.NoError(t, w.SelectItem(id, 3))
		assert.Equal(t, int64(3), w.Selections()[id])
	})

	t.Run("selection only on the item step", func(t *testing.T) {
		w := newTestWizard(t)
		id := w.Lines()[0].LineID
		require.NoError(t, w.SelectItem(id, 1))
		require.NoError(t, w.Advance(func(Step) bool { return true }))
		require.ErrorIs(t, w.SelectItem(id, 2), shared.ErrInvalidState)
		require.ErrorIs(t, w.DeselectItem(id), shared.ErrInvalidState)
	})
}

func TestWizardDeselectItem(t *testing.T) {
	t.Run("removes a selection", func(t *testing.T) {
		w := newTestWizard(t)
		id := w.Lines()[0].LineID
		require.NoError(t, w.SelectItem(id, 1))
		require.NoError(t, w.DeselectItem(id))
		assert.False(t, w.HasSelection())
	})

	t.Run("unselected line", func(t *testing.T) {
		w := newTestWizard(t)
		require.ErrorIs(t, w.DeselectItem(w.Lines()[0].LineID), shared.ErrNotFound)
	})
}

func TestWizardSelectedWeight(t *testing.T) {
	w := newTestWizard(t)
	lines := w.Lines()
	assert.True(t, w.SelectedWeight().IsZero())

	require.NoError(t, w.SelectItem(lines[0].LineID, 2)) // 2 * 300g
	require.NoError(t, w.SelectItem(lines[1].LineID, 1)) // 1 * 150g
	assert.Equal(t, int64(750), w.SelectedWeight().GramsInt())
}

func TestWizardQuoteContext(t *testing.T) {
	w := newTestWizard(t)
	lines := w.Lines()
	require.NoError(t, w.SelectItem(lines[0].LineID, 1))
	ctx := w.QuoteContext()
	assert.Equal(t, w.ShipFrom.ID, ctx.AddressID)
	assert.Equal(t, int64(300), ctx.WeightGrams)

	// changing the selection moves the context
	require.NoError(t, w.SelectItem(lines[0].LineID, 2))
	assert.NotEqual(t, ctx, w.QuoteContext())
}

func TestWizardAdvanceRetreat(t *testing.T) {
	t.Run("advance is gated on the predicate", func(t *testing.T) {
		w := newTestWizard(t)
		err := w.Advance(func(Step) bool { return false })
		require.ErrorIs(t, err, shared.ErrStepIncomplete)
		assert.Equal(t, StepItemSelection, w.Current())

		require.NoError(t, w.Advance(func(Step) bool { return true }))
		assert.Equal(t, StepReturnRateSelection, w.Current())
	})

	t.Run("cannot advance past packaging instructions", func(t *testing.T) {
		w := newTestWizard(t)
		for w.Current() != StepPackagingInstructions {
			require.NoError(t, w.Advance(func(Step) bool { return true }))
		}
		require.Error(t, w.Advance(func(Step) bool { return true }))
	})

	t.Run("retreat", func(t *testing.T) {
		w := newTestWizard(t)
		require.Error(t, w.Retreat())
		require.NoError(t, w.Advance(func(Step) bool { return true }))
		require.NoError(t, w.Retreat())
		assert.Equal(t, StepItemSelection, w.Current())
	})
}

func TestWizardLabel(t *testing.T) {
	t.Run("records an issued label once", func(t *testing.T) {
		w := newTestWizard(t)
		require.False(t, w.HasLabel())
		require.NoError(t, w.SetLabel("std", "https://labels.example/l1.pdf"))
		require.True(t, w.HasLabel())

		label := w.Label()
		require.NotNil(t, label)
		assert.Equal(t, "std", label.RateID)

		require.ErrorIs(t, w.SetLabel("exp", "https://labels.example/l2.pdf"), shared.ErrInvalidState)
		assert.Equal(t, "std", w.Label().RateID)
	})

	t.Run("rejects an empty url", func(t *testing.T) {
		w := newTestWizard(t)
		require.Error(t, w.SetLabel("std", ""))
	})
}

func TestWizardComplete(t *testing.T) {
	toFinalStep := func(t *testing.T) *Wizard {
		t.Helper()
		w := newTestWizard(t)
		require.NoError(t, w.SelectItem(w.Lines()[0].LineID, 2))
		for w.Current() != StepPackagingInstructions {
			require.NoError(t, w.Advance(func(Step) bool { return true }))
		}
		require.NoError(t, w.SetLabel("std", "https://labels.example/l1.pdf"))
		return w
	}

	t.Run("finalizes without touching the line counters", func(t *testing.T) {
		w := toFinalStep(t)
		require.NoError(t, w.Complete())
		assert.True(t, w.IsCompleted())
		// returned quantities live in session markers, not on the lines
		assert.Equal(t, int64(0), w.Lines()[0].AlreadyReturned)
	})

	t.Run("only on the final step", func(t *testing.T) {
		w := newTestWizard(t)
		require.ErrorIs(t, w.Complete(), shared.ErrInvalidState)
	})

	t.Run("requires a label", func(t *testing.T) {
		w := newTestWizard(t)
		require.NoError(t, w.SelectItem(w.Lines()[0].LineID, 1))
		for w.Current() != StepPackagingInstructions {
			require.NoError(t, w.Advance(func(Step) bool { return true }))
		}
		err := w.Complete()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "label")
	})

	t.Run("cannot complete twice", func(t *testing.T) {
		w := toFinalStep(t)
		require.NoError(t, w.Complete())
		require.ErrorIs(t, w.Complete(), shared.ErrInvalidState)
	})
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, "ITEM_SELECTION", StepItemSelection.String())
	assert.Equal(t, "PACKAGING_INSTRUCTIONS", StepPackagingInstructions.String())
	assert.True(t, StepLabelIssuance.IsValid())
	assert.False(t, Step(0).IsValid())
}
