// Package budget bounds spending against external oracles. The runner owns
// one Budget per run and checks it before every call; nothing global.
package budget

import (
	"errors"
	"fmt"
	"sync"
)

// ErrExhausted is returned once either the call or the cost ceiling is hit.
var ErrExhausted = errors.New("oracle budget exhausted")

// Budget tracks oracle calls and estimated spend for one run.
type Budget struct {
	mu       sync.Mutex
	maxCalls int
	maxCost  float64
	calls    int
	cost     float64
}

// New builds a budget. Zero maxCalls or maxCost means unlimited on that axis.
func New(maxCalls int, maxCost float64) *Budget {
	return &Budget{maxCalls: maxCalls, maxCost: maxCost}
}

// Allow reports whether one more call at the given estimated cost fits. It
// must be consulted before the call is issued, never after.
func (b *Budget) Allow(cost float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxCalls > 0 && b.calls+1 > b.maxCalls {
		return fmt.Errorf("%w: %d calls used", ErrExhausted, b.calls)
	}
	if b.maxCost > 0 && b.cost+cost > b.maxCost {
		return fmt.Errorf("%w: %.4f spent of %.4f", ErrExhausted, b.cost, b.maxCost)
	}
	return nil
}

// Spend records a call that was actually issued.
func (b *Budget) Spend(cost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.cost += cost
}

// Used reports calls issued and cost recorded so far.
func (b *Budget) Used() (calls int, cost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls, b.cost
}

// Exhausted reports whether even a zero-cost call would be refused.
func (b *Budget) Exhausted() bool {
	return b.Allow(0) != nil
}
