// Package eventloop implements corvid's promise state machine and the
// cooperative single-threaded microtask/macrotask scheduler from spec
// §4.7/§5. All tasks run synchronously on whichever goroutine calls Run —
// the loop itself adds no concurrency, it only orders deferred work.
package eventloop

import (
	"github.com/kristofer/corvid/pkg/object"
)

// State mirrors the loop's two observable states.
type State int

const (
	Stopped State = iota
	Running
)

// Task is a zero-argument callback, the unit of work on either queue.
type Task func() error

// Loop owns the microtask and macrotask FIFOs described in §4.7.
type Loop struct {
	state      State
	microtasks []Task
	macrotasks []Task
	onError    func(error)
}

// New builds an idle loop. onError is invoked synchronously from Run, right
// after a task returns an error — the event loop "catches errors from
// callbacks and logs them via LOG_ERROR, then continues" per §7.
func New(onError func(error)) *Loop {
	return &Loop{onError: onError}
}

// EnqueueMicrotask appends to the microtask queue. If the loop was
// Stopped, enqueuing transitions it back to Running (§4.7); the caller is
// responsible for calling Run again to actually drain it, since this
// package does not spawn its own goroutine.
func (l *Loop) EnqueueMicrotask(t Task) {
	l.microtasks = append(l.microtasks, t)
	l.state = Running
}

// EnqueueMacrotask appends to the macrotask queue, with the same restart
// semantics as EnqueueMicrotask.
func (l *Loop) EnqueueMacrotask(t Task) {
	l.macrotasks = append(l.macrotasks, t)
	l.state = Running
}

func (l *Loop) State() State { return l.state }

// Run executes the §4.7 algorithm to completion: drain microtasks fully
// between each macrotask step, stop once both queues are empty. Run
// returns once the loop reaches Stopped; a later Enqueue* call can restart
// it, requiring another Run call from the driver.
func (l *Loop) Run() {
	l.state = Running
	for l.state == Running {
		for len(l.microtasks) > 0 {
			t := l.microtasks[0]
			l.microtasks = l.microtasks[1:]
			l.invoke(t)
		}
		if len(l.macrotasks) > 0 {
			t := l.macrotasks[0]
			l.macrotasks = l.macrotasks[1:]
			l.invoke(t)
			continue
		}
		l.state = Stopped
	}
}

func (l *Loop) invoke(t Task) {
	if err := t(); err != nil && l.onError != nil {
		l.onError(err)
	}
}

// Stop requests the loop exit after the current task; it takes effect on
// the next iteration of Run's outer loop.
func (l *Loop) Stop() { l.state = Stopped }

// Settle transitions p and schedules its pending reactions as microtasks,
// implementing §4.7's "on transition, each subscribed callback is enqueued
// on the microtask queue."
func (l *Loop) Settle(p *object.Promise, state object.PromiseState, value object.Value, invoke func(callable object.Value, args []object.Value) (object.Value, error)) {
	reactions := p.Settle(state, value)
	for _, r := range reactions {
		l.scheduleReaction(r, state, value, invoke)
	}
}

// Then implements §4.7's then/catch registration: if p is already settled,
// the matching callback is enqueued immediately; otherwise it waits for a
// future Settle call to enqueue it.
func (l *Loop) Then(p *object.Promise, onFulfilled, onRejected object.Value, invoke func(object.Value, []object.Value) (object.Value, error)) *object.Promise {
	derived, immediate := p.AddReaction(onFulfilled, onRejected)
	if immediate != nil {
		l.scheduleReaction(*immediate, p.State, p.Value, invoke)
	}
	return derived
}

func (l *Loop) scheduleReaction(r object.Reaction, state object.PromiseState, value object.Value, invoke func(object.Value, []object.Value) (object.Value, error)) {
	l.EnqueueMicrotask(func() error {
		var callback object.Value
		if state == object.Fulfilled {
			callback = r.OnFulfilled
		} else {
			callback = r.OnRejected
		}
		if callback == nil {
			// No handler registered for this branch: propagate the value/
			// reason through unchanged, matching promise-chain passthrough.
			if state == object.Fulfilled {
				l.Settle(r.Result, object.Fulfilled, value, invoke)
			} else {
				l.Settle(r.Result, object.Rejected, value, invoke)
			}
			return nil
		}
		result, err := invoke(callback, []object.Value{value})
		if err != nil {
			l.Settle(r.Result, object.Rejected, errorValue(err), invoke)
			return nil
		}
		l.Settle(r.Result, object.Fulfilled, result, invoke)
		return nil
	})
}

func errorValue(err error) object.Value {
	return object.NewStr(err.Error())
}

// Resolve implements Promise.resolve(x): x unchanged if already a promise,
// else a new promise immediately fulfilled with x.
func Resolve(x object.Value) *object.Promise {
	if p, ok := x.(*object.Promise); ok {
		return p
	}
	p := object.NewPromise()
	p.Settle(object.Fulfilled, x)
	return p
}

// Reject mirrors Resolve for the rejected branch.
func Reject(reason object.Value) *object.Promise {
	p := object.NewPromise()
	p.Settle(object.Rejected, reason)
	return p
}
