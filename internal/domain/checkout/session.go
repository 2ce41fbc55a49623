package checkout

import (
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// Step is a checkout wizard step. Steps are linear and 1-indexed.
type Step int

const (
	StepAddressSelection Step = iota + 1
	StepRateSelection
	StepPayment
	StepConfirmation
)

// firstStep and lastStep bound the linear sequence
const (
	firstStep = StepAddressSelection
	lastStep  = StepConfirmation
)

// String returns the step name
func (s Step) String() string {
	switch s {
	case StepAddressSelection:
		return "ADDRESS_SELECTION"
	case StepRateSelection:
		return "RATE_SELECTION"
	case StepPayment:
		return "PAYMENT"
	case StepConfirmation:
		return "CONFIRMATION"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// IsValid checks if the step is within the sequence
func (s Step) IsValid() bool {
	return s >= firstStep && s <= lastStep
}

// StepPredicate reports whether a step's completion predicate holds. The
// orchestrating service supplies it; the session itself carries no cart or
// payment state.
type StepPredicate func(Step) bool

// Session is the checkout wizard state machine. Forward movement is gated
// on the current step's completion predicate; backward movement is always
// allowed.
type Session struct {
	current Step
}

// NewSession creates a session positioned on the first step
func NewSession() *Session {
	return &Session{current: firstStep}
}

// RestoreSession rebuilds a session at a persisted step
func RestoreSession(step Step) (*Session, error) {
	if !step.IsValid() {
		return nil, shared.NewDomainError("INVALID_STEP", "Persisted step is out of range")
	}
	return &Session{current: step}, nil
}

// Current returns the current step
func (s *Session) Current() Step {
	return s.current
}

// Advance moves to the next step if the current step's completion predicate
// holds. Advancing past the last step is rejected.
func (s *Session) Advance(isComplete StepPredicate) error {
	if s.current == lastStep {
		return shared.NewDomainError("INVALID_STEP", "Already on the final step")
	}
	if !isComplete(s.current) {
		return shared.ErrStepIncomplete
	}
	s.current++
	return nil
}

// Retreat moves to the previous step. The step being left is not
// re-validated.
func (s *Session) Retreat() error {
	if s.current == firstStep {
		return shared.NewDomainError("INVALID_STEP", "Already on the first step")
	}
	s.current--
	return nil
}

// RouteBackTo jumps to an earlier step. Used when order creation is
// rejected and the user must re-do a step whose data went invalid; forward
// jumps are never permitted through this path.
func (s *Session) RouteBackTo(step Step) error {
	if !step.IsValid() {
		return shared.NewDomainError("INVALID_STEP", "Target step is out of range")
	}
	if step > s.current {
		return shared.NewDomainError("INVALID_STEP", "Cannot route forward past unvisited steps")
	}
	s.current = step
	return nil
}

// Reset returns the session to the first step
func (s *Session) Reset() {
	s.current = firstStep
}
