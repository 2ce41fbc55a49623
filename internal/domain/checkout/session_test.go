package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/shared"
)

func allComplete(Step) bool  { return true }
func noneComplete(Step) bool { return false }

func TestStep(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "ADDRESS_SELECTION", StepAddressSelection.String())
		assert.Equal(t, "RATE_SELECTION", StepRateSelection.String())
		assert.Equal(t, "PAYMENT", StepPayment.String())
		assert.Equal(t, "CONFIRMATION", StepConfirmation.String())
		assert.Contains(t, Step(9).String(), "UNKNOWN")
	})

	t.Run("validity bounds", func(t *testing.T) {
		assert.True(t, StepAddressSelection.IsValid())
		assert.True(t, StepConfirmation.IsValid())
		assert.False(t, Step(0).IsValid())
		assert.False(t, Step(5).IsValid())
	})
}

func TestSessionAdvance(t *testing.T) {
	t.Run("advances when the predicate holds", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.Advance(allComplete))
		assert.Equal(t, StepRateSelection, s.Current())
	})

	t.Run("rejects an incomplete step", func(t *testing.T) {
		s := NewSession()
		err := s.Advance(noneComplete)
		require.ErrorIs(t, err, shared.ErrStepIncomplete)
		assert.Equal(t, StepAddressSelection, s.Current())
	})

	t.Run("predicate is consulted for the step being left", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.Advance(allComplete))

		var asked []Step
		err := s.Advance(func(step Step) bool {
			asked = append(asked, step)
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, []Step{StepRateSelection}, asked)
	})

	t.Run("cannot advance past the final step", func(t *testing.T) {
		s := NewSession()
		for s.Current() != StepConfirmation {
			require.NoError(t, s.Advance(allComplete))
		}
		err := s.Advance(allComplete)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "final step")
	})
}

func TestSessionRetreat(t *testing.T) {
	t.Run("moves backwards without re-validation", func(t *testing.T) {
		s := NewSession()
		require.NoError(t, s.Advance(allComplete))
		require.NoError(t, s.Retreat())
		assert.Equal(t, StepAddressSelection, s.Current())
	})

	t.Run("cannot retreat from the first step", func(t *testing.T) {
		s := NewSession()
		require.Error(t, s.Retreat())
	})
}

func TestSessionRouteBackTo(t *testing.T) {
	onConfirmation := func(t *testing.T) *Session {
		t.Helper()
		s := NewSession()
		for s.Current() != StepConfirmation {
			require.NoError(t, s.Advance(allComplete))
		}
		return s
	}

	t.Run("jumps to an earlier step", func(t *testing.T) {
		s := onConfirmation(t)
		require.NoError(t, s.RouteBackTo(StepRateSelection))
		assert.Equal(t, StepRateSelection, s.Current())
	})

	t.Run("routing to the current step is allowed", func(t *testing.T) {
		s := onConfirmation(t)
		require.NoError(t, s.RouteBackTo(StepConfirmation))
	})

	t.Run("rejects forward jumps", func(t *testing.T) {
		s := NewSession()
		err := s.RouteBackTo(StepPayment)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "forward")
	})

	t.Run("rejects out-of-range targets", func(t *testing.T) {
		s := onConfirmation(t)
		require.Error(t, s.RouteBackTo(Step(0)))
	})
}

func TestRestoreSession(t *testing.T) {
	t.Run("restores a persisted step", func(t *testing.T) {
		s, err := RestoreSession(StepPayment)
		require.NoError(t, err)
		assert.Equal(t, StepPayment, s.Current())
	})

	t.Run("rejects an out-of-range step", func(t *testing.T) {
		_, err := RestoreSession(Step(7))
		require.Error(t, err)
	})
}

func TestSessionReset(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Advance(allComplete))
	require.NoError(t, s.Advance(allComplete))
	s.Reset()
	assert.Equal(t, StepAddressSelection, s.Current())
}
