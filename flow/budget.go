package flow

import (
	"fmt"
	"sync"
)

// StepBudget enforces the maximum number of reasoning steps of one loop
// invocation.
type StepBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepBudget creates a budget allowing max steps. max must be positive.
func NewStepBudget(max int) *StepBudget {
	return &StepBudget{max: max}
}

// Consume records one step and returns an error once the budget is exceeded.
func (b *StepBudget) Consume() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.max {
		return fmt.Errorf("exceeded max steps: %d", b.max)
	}
	b.count++

	return nil
}

// Count returns the number of consumed steps, which is also the index of the
// next step.
func (b *StepBudget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

// Remaining returns how many steps are left.
func (b *StepBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.max - b.count
}

// Exhausted reports whether no step is left.
func (b *StepBudget) Exhausted() bool { return b.Remaining() <= 0 }

// Max returns the configured budget.
func (b *StepBudget) Max() int { return b.max }
