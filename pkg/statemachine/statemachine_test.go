package statemachine

import "testing"

type counter struct {
	ticks int
}

func stateTick(c *counter) StateFn[counter] {
	c.ticks++
	if c.ticks >= 3 {
		return stateDone
	}
	return stateTick
}

func stateDone(c *counter) StateFn[counter] {
	return nil
}

func TestDispatchAdvances(t *testing.T) {
	c := &counter{}
	m := New(c, stateTick)

	m.Dispatch(m.Current())
	if c.ticks != 1 {
		t.Fatalf("expected 1 tick, got %d", c.ticks)
	}
	if !Same(m.Current(), stateTick) {
		t.Fatal("expected machine to stay in tick state")
	}

	m.Dispatch(m.Current())
	m.Dispatch(m.Current())
	if !Same(m.Current(), stateDone) {
		t.Fatal("expected machine to reach done state")
	}

	m.Dispatch(m.Current())
	if !m.Terminated() {
		t.Fatal("expected machine to terminate after done state")
	}
}

func TestSetDoesNotExecute(t *testing.T) {
	c := &counter{}
	m := New(c, stateTick)

	m.Set(stateDone)
	if c.ticks != 0 {
		t.Fatalf("Set must not execute the state, ticks=%d", c.ticks)
	}
	if !Same(m.Current(), stateDone) {
		t.Fatal("expected current state to be done")
	}
}

func TestNilDispatchTerminates(t *testing.T) {
	c := &counter{}
	m := New(c, stateTick)
	m.Dispatch(nil)
	if !m.Terminated() {
		t.Fatal("dispatching nil must terminate the machine")
	}
}
