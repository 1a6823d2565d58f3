package eventloop

import (
	"testing"

	"github.com/kristofer/corvid/pkg/object"
)

// These tests exercise the Loop/Promise state machine in isolation, with a
// fake callable standing in for a corvid function — pkg/eventloop cannot
// import pkg/vm to drive real compiled source (pkg/vm already imports
// this package). The literal spec §8 scenario 4 chain, driven through
// real corvid source and the then/catch attribute dispatch on
// PromiseClass, lives in pkg/vm/vm_test.go's TestPromiseOrderingEndToEnd.

// identityInvoke is the minimal Caller stand-in a then()-callback needs:
// most callbacks here are plain Go closures recorded via a fake callable,
// so Invoke only has to run them and report their return value.
func identityInvoke(t *testing.T, order *[]string) func(object.Value, []object.Value) (object.Value, error) {
	return func(callable object.Value, args []object.Value) (object.Value, error) {
		fn, ok := callable.(*recorder)
		if !ok {
			t.Fatalf("unexpected callable %#v", callable)
		}
		return fn.call(args)
	}
}

// recorder is a fake native callable: calling it appends its label to a
// shared order slice, letting tests assert the exact sequencing spec §4.7
// requires (microtasks drain fully before any macrotask runs).
type recorder struct {
	object.Header
	label string
	order *[]string
}

func newRecorder(label string, order *[]string) *recorder {
	return &recorder{label: label, order: order}
}

func (r *recorder) call(args []object.Value) (object.Value, error) {
	*r.order = append(*r.order, r.label)
	return object.None, nil
}

// TestMicrotasksDrainBeforeMacrotask checks the scheduler ordering that
// spec §8's promise-ordering scenario relies on: a macrotask is scheduled,
// then a promise already resolved is `.then()`-chained — the then callback (a microtask) must run before the
// macrotask even though the macrotask was enqueued first.
func TestMicrotasksDrainBeforeMacrotask(t *testing.T) {
	var order []string
	loop := New(func(err error) { t.Fatalf("unexpected loop error: %v", err) })

	loop.EnqueueMacrotask(func() error {
		order = append(order, "macrotask")
		return nil
	})

	p := Resolve(object.NewStr("value"))
	loop.Then(p, newRecorder("then", &order), nil, identityInvoke(t, &order))

	loop.Run()

	want := []string{"then", "macrotask"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s (full: %v)", i, order[i], want[i], order)
		}
	}
}

// TestPromiseSettlesOnce checks the idempotent-resolve invariant: a second
// Settle call must not overwrite the first state/value.
func TestPromiseSettlesOnce(t *testing.T) {
	p := object.NewPromise()
	p.Settle(object.Fulfilled, object.NewStr("first"))
	p.Settle(object.Rejected, object.NewStr("second"))

	if p.State != object.Fulfilled {
		t.Errorf("state = %v, want Fulfilled (settle must be idempotent)", p.State)
	}
	if got := p.Value.(*object.Str).Val; got != "first" {
		t.Errorf("value = %q, want %q", got, "first")
	}
}

// TestThenChainPropagatesRejectionWithoutHandler checks promise-chain
// passthrough: a .then() with no onRejected still forwards the rejection
// reason to the derived promise unchanged.
func TestThenChainPropagatesRejectionWithoutHandler(t *testing.T) {
	var order []string
	loop := New(func(err error) { t.Fatalf("unexpected loop error: %v", err) })

	p := Reject(object.NewStr("boom"))
	derived := loop.Then(p, nil, nil, identityInvoke(t, &order))
	loop.Run()

	if derived.State != object.Rejected {
		t.Errorf("derived state = %v, want Rejected", derived.State)
	}
	if got := derived.Value.(*object.Str).Val; got != "boom" {
		t.Errorf("derived value = %q, want %q", got, "boom")
	}
}
