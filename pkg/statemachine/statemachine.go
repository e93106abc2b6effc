// Package statemachine provides a small generic state machine built on
// Rob Pike's state-function pattern: each state is a function that does its
// work and returns the next state function, or nil to terminate.
package statemachine

import (
	"fmt"
	"sync"
)

// StateFn is a state function. It receives the entity the machine drives
// and returns the state to transition to.
type StateFn[T any] func(*T) StateFn[T]

// Machine drives an entity through StateFn transitions. It is safe for
// concurrent use, though callers that already serialize access (e.g. an
// actor loop) pay only the uncontended lock cost.
type Machine[T any] struct {
	entity  *T
	stateFn StateFn[T]
	mu      sync.RWMutex
}

// New creates a machine for entity starting at initial.
func New[T any](entity *T, initial StateFn[T]) *Machine[T] {
	return &Machine[T]{entity: entity, stateFn: initial}
}

// Dispatch sets stateFn as the current state, executes it once, and stores
// the state it returns. A nil stateFn terminates the machine.
func (m *Machine[T]) Dispatch(stateFn StateFn[T]) {
	m.mu.Lock()
	m.stateFn = stateFn
	m.mu.Unlock()

	if stateFn == nil {
		return
	}

	next := stateFn(m.entity)

	m.mu.Lock()
	m.stateFn = next
	m.mu.Unlock()
}

// Current returns the current state function.
func (m *Machine[T]) Current() StateFn[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateFn
}

// Set replaces the current state without executing it. Used when restoring
// an entity from a persisted snapshot.
func (m *Machine[T]) Set(stateFn StateFn[T]) {
	m.mu.Lock()
	m.stateFn = stateFn
	m.mu.Unlock()
}

// Terminated reports whether the machine has reached the nil state.
func (m *Machine[T]) Terminated() bool {
	return m.Current() == nil
}

// Same reports whether two state functions are the same state. Function
// values are not comparable in Go, so identity is established through the
// printed function pointer.
func Same[T any](a, b StateFn[T]) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}
