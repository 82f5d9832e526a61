package session

import (
	"sync"
	"sync/atomic"
)

// guardedString mirrors the poisoned-mutex discipline of the original: a
// panic while holding the lock poisons the cell, and every subsequent
// reader sees the zero value rather than a torn write. Go has no built-in
// mutex poisoning, so the poisoned flag is tracked explicitly and the
// setter recovers from panics raised by its callback.
type guardedString struct {
	mu       sync.Mutex
	value    string
	poisoned atomic.Bool
}

func (g *guardedString) get() string {
	if g.poisoned.Load() {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.poisoned.Load() {
		return ""
	}
	return g.value
}

func (g *guardedString) set(v string) {
	g.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			g.poisoned.Store(true)
		}
		g.mu.Unlock()
	}()
	g.value = v
}

// guardedGoals is the []string analogue of guardedString, used for the
// goals cell.
type guardedGoals struct {
	mu       sync.Mutex
	value    []string
	poisoned atomic.Bool
}

func (g *guardedGoals) get() []string {
	if g.poisoned.Load() {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.poisoned.Load() {
		return nil
	}
	out := make([]string, len(g.value))
	copy(out, g.value)
	return out
}

func (g *guardedGoals) set(v []string) {
	g.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			g.poisoned.Store(true)
		}
		g.mu.Unlock()
	}()
	g.value = append([]string(nil), v...)
}

// SessionContext is the shared mutable state visible to both the pipeline
// step loop and the host-UI control surface: the live thought and goals
// cells, and the cooperative stop flag. A SessionContext is created once
// per recording session and outlives neither its pipeline nor its input
// collector.
type SessionContext struct {
	thought guardedString
	goals   guardedGoals
	stopped atomic.Bool
}

// NewSessionContext returns a context with an empty thought, no goals, and
// the stop flag clear.
func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

// SetThought updates the live thought text. Safe for concurrent use with
// Thought and with a concurrent SetThought.
func (c *SessionContext) SetThought(text string) {
	c.thought.set(text)
}

// Thought returns the most recently set thought text, or "" if the cell
// was never set or was poisoned by a prior panic.
func (c *SessionContext) Thought() string {
	return c.thought.get()
}

// SetGoals replaces the live goals list.
func (c *SessionContext) SetGoals(goals []string) {
	c.goals.set(goals)
}

// Goals returns a copy of the most recently set goals list.
func (c *SessionContext) Goals() []string {
	return c.goals.get()
}

// RequestStop sets the cooperative stop flag; the pipeline observes it at
// the next step boundary and begins finalization.
func (c *SessionContext) RequestStop() {
	c.stopped.Store(true)
}

// StopRequested reports whether RequestStop has been called.
func (c *SessionContext) StopRequested() bool {
	return c.stopped.Load()
}
