package pipeline

import "sync/atomic"

// Gate admits at most one trigger at a time. It never queues: a trigger that
// arrives while the gate is busy is rejected and lost.
type Gate struct {
	busy atomic.Bool
}

// TryAdmit moves the gate from idle to busy. Of any number of concurrent
// callers on an idle gate, exactly one gets true.
func (g *Gate) TryAdmit() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release returns the gate to idle. Releasing an idle gate is a no-op.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// State reports "busy" or "idle" for status output.
func (g *Gate) State() string {
	if g.busy.Load() {
		return "busy"
	}
	return "idle"
}
