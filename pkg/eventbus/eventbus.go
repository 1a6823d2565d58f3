// Package eventbus implements corvid's process-wide typed publish/
// subscribe registry (spec §4.8) — the sole surface a host thread may use
// to reach into the interpreter. A second thread may publish INPUT events;
// it must never touch a runtime value directly.
package eventbus

import "sync"

// Kind is one of the closed set of event kinds corvid recognizes.
type Kind string

const (
	LogInfo    Kind = "LOG_INFO"
	LogWarning Kind = "LOG_WARNING"
	LogError   Kind = "LOG_ERROR"
	LogDebug   Kind = "LOG_DEBUG"
	ExitProgram Kind = "EXIT_PROGRAM"
	Input      Kind = "INPUT"
)

// Subscriber receives the string payload of a published event.
type Subscriber func(data string)

type subscription struct {
	id  uint64
	fn  Subscriber
}

// Bus is a mutex-guarded registry of Kind -> ordered subscriber list.
// Subscribers must not themselves block or publish recursively in a way
// that would deadlock the mutex — the bus invokes callbacks outside the
// lock to allow a subscriber to call Publish/Subscribe/Unsubscribe itself.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[Kind][]subscription
}

func New() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers fn for kind and returns a monotonic non-zero id. A
// nil fn is ignored and returns id 0, per §6.1.
func (b *Bus) Subscribe(kind Kind, fn Subscriber) uint64 {
	if fn == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes the subscription with id from whichever kind holds
// it. id 0 is a no-op, per §6.1.
func (b *Bus) Unsubscribe(id uint64) {
	if id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, list := range b.subs {
		for i, s := range list {
			if s.id == id {
				b.subs[kind] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish invokes every live subscriber for kind, in subscription order,
// with data. The subscriber snapshot is taken under the lock and invoked
// outside it, so a subscriber may itself call back into the bus.
func (b *Bus) Publish(kind Kind, data string) {
	b.mu.Lock()
	list := append([]subscription(nil), b.subs[kind]...)
	b.mu.Unlock()

	for _, s := range list {
		s.fn(data)
	}
}
