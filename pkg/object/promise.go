package object

import "github.com/pkg/errors"

// PromiseState is the three-state machine of spec §3.5: PENDING transitions
// exactly once, to either FULFILLED or REJECTED, and never back.
type PromiseState int

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Reaction is one then/catch registration waiting on settlement.
type Reaction struct {
	OnFulfilled Value // callable or nil
	OnRejected  Value // callable or nil
	Result      *Promise
}

// Promise implements §3.5/§4.7: a PENDING/FULFILLED/REJECTED state machine
// whose resolve/reject transition is idempotent (only the first call
// matters) and whose reactions are scheduled onto the microtask queue, not
// invoked synchronously, preserving the ordering guarantees pkg/eventloop
// tests against.
type Promise struct {
	Header

	State     PromiseState
	Value     Value // fulfillment value or rejection reason
	reactions []Reaction
	settled   bool
}

func NewPromise() *Promise {
	p := &Promise{State: Pending}
	p.setClass(PromiseClass)
	return p
}

// Settle transitions the promise exactly once; subsequent calls are no-ops
// per the idempotent-resolve rule. It returns the reactions that should now
// be scheduled, letting pkg/eventloop own queue semantics while Promise
// owns state.
func (p *Promise) Settle(state PromiseState, value Value) []Reaction {
	if p.settled {
		return nil
	}
	p.settled = true
	p.State = state
	p.Value = value
	pending := p.reactions
	p.reactions = nil
	return pending
}

// AddReaction registers a then/catch pair, returning the derived promise
// and, if the receiver is already settled, the reaction to schedule
// immediately (nil if it was queued for a later Settle call instead).
func (p *Promise) AddReaction(onFulfilled, onRejected Value) (*Promise, *Reaction) {
	derived := NewPromise()
	r := Reaction{OnFulfilled: onFulfilled, OnRejected: onRejected, Result: derived}
	if p.settled {
		return derived, &r
	}
	p.reactions = append(p.reactions, r)
	return derived, nil
}

func (p *Promise) IsSettled() bool { return p.settled }

// PromiseScheduler is the Caller a promise's then/catch/resolve/reject
// native methods type-assert for: scheduling a reaction needs the event
// loop's microtask queue, which pkg/object cannot import directly without
// creating a cycle (pkg/eventloop already imports pkg/object). pkg/vm's
// *VM satisfies this by delegating to its Loop with its own Invoke as the
// callback.
type PromiseScheduler interface {
	Caller
	Then(p *Promise, onFulfilled, onRejected Value) *Promise
	SettlePromise(p *Promise, state PromiseState, value Value)
}

func init() {
	PromiseClass.DefineMember("then", NewNativeFunction("then", promiseThen))
	PromiseClass.DefineMember("catch", NewNativeFunction("catch", promiseCatch))
	PromiseClass.DefineMember("resolve", NewNativeFunction("resolve", promiseResolve))
	PromiseClass.DefineMember("reject", NewNativeFunction("reject", promiseReject))
}

// promiseThen implements §4.7's `then(onF)`: args[0] is the receiver
// (bound automatically via GetAttr's BoundMethod wrapping), args[1] the
// optional fulfillment handler.
func promiseThen(c Caller, args []Value) (Value, error) {
	self, sched, err := promiseReceiver(c, args, "then")
	if err != nil {
		return nil, err
	}
	var onFulfilled Value
	if len(args) > 1 {
		onFulfilled = args[1]
	}
	return sched.Then(self, onFulfilled, nil), nil
}

// promiseCatch implements `catch(onR)`, symmetric with then on the reject
// side.
func promiseCatch(c Caller, args []Value) (Value, error) {
	self, sched, err := promiseReceiver(c, args, "catch")
	if err != nil {
		return nil, err
	}
	var onRejected Value
	if len(args) > 1 {
		onRejected = args[1]
	}
	return sched.Then(self, nil, onRejected), nil
}

// promiseResolve implements the class-level `Promise.resolve(x)`: x
// unchanged if already a promise, else a new promise immediately
// fulfilled with x. args[0] is the Promise class itself (GetAttr binds
// static members the same way it binds instance methods), args[1] is x.
func promiseResolve(c Caller, args []Value) (Value, error) {
	if len(args) < 2 {
		return nil, errors.New("resolve() missing argument")
	}
	if p, ok := args[1].(*Promise); ok {
		return p, nil
	}
	sched, ok := c.(PromiseScheduler)
	if !ok {
		return nil, errors.New("resolve: caller cannot schedule promises")
	}
	p := NewPromise()
	sched.SettlePromise(p, Fulfilled, args[1])
	return p, nil
}

// promiseReject mirrors promiseResolve for the rejected branch.
func promiseReject(c Caller, args []Value) (Value, error) {
	if len(args) < 2 {
		return nil, errors.New("reject() missing argument")
	}
	sched, ok := c.(PromiseScheduler)
	if !ok {
		return nil, errors.New("reject: caller cannot schedule promises")
	}
	p := NewPromise()
	sched.SettlePromise(p, Rejected, args[1])
	return p, nil
}

func promiseReceiver(c Caller, args []Value, method string) (*Promise, PromiseScheduler, error) {
	if len(args) < 1 {
		return nil, nil, errors.Errorf("%s: missing receiver", method)
	}
	self, ok := args[0].(*Promise)
	if !ok {
		return nil, nil, errors.Errorf("%s: receiver is not a Promise", method)
	}
	sched, ok := c.(PromiseScheduler)
	if !ok {
		return nil, nil, errors.Errorf("%s: caller cannot schedule promises", method)
	}
	return self, sched, nil
}
