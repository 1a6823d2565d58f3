// Package object implements corvid's value representation, class registry,
// and method-resolution engine (MRO, attribute lookup, operator dispatch).
//
// Every corvid value is a Go value satisfying the Value interface. Unlike
// the teacher VM (which dispatches on bare int64/string/*Instance via type
// switches), every Value here carries a class pointer, because class-based
// dispatch and MRO walking are the point of this runtime: a bare int64
// cannot answer "what is your MRO" or "do you have an __add__ override".
//
// Concrete kinds embed Header, which holds the class pointer, the lazily
// allocated instance attribute table, the lazily allocated method cache,
// and the lazily computed hash slot described in spec §3.1.
package object

import "sync"

// Value is the shared handle every corvid runtime value satisfies.
type Value interface {
	Class() *Class
}

// Header is embedded by every concrete value kind. It is always accessed
// through a pointer receiver, so embedding it by value in a struct that is
// itself always used via a pointer (e.g. *Str, *Instance) is safe and
// avoids an extra allocation per value.
type Header struct {
	class       *Class
	attrs       map[string]Value
	methodCache map[string]Value
	hash        *uint64
	hashOnce    sync.Once
}

// Class returns the value's class pointer. Per spec §3.1 this is never nil
// once a value is constructed.
func (h *Header) Class() *Class { return h.class }

func (h *Header) setClass(c *Class) { h.class = c }

// Attrs returns the instance attribute mapping, allocating it on first use.
func (h *Header) Attrs() map[string]Value {
	if h.attrs == nil {
		h.attrs = make(map[string]Value)
	}
	return h.attrs
}

// HasAttrs reports whether the attribute table holds any entries, without
// forcing the allocation (used by lookups that only want to read).
func (h *Header) HasAttrs() bool { return len(h.attrs) > 0 }

// RawAttr reads the instance attribute table without allocating it.
func (h *Header) RawAttr(name string) (Value, bool) {
	v, ok := h.attrs[name]
	return v, ok
}

// MethodCache returns the instance method-cache mapping, allocating it on
// first use. See §4.2 step 3-4: callables discovered via MRO walk are
// cached here so repeated sends don't re-walk the MRO.
func (h *Header) MethodCache() map[string]Value {
	if h.methodCache == nil {
		h.methodCache = make(map[string]Value)
	}
	return h.methodCache
}

// RawMethodCache reads the method cache without allocating it.
func (h *Header) RawMethodCache(name string) (Value, bool) {
	v, ok := h.methodCache[name]
	return v, ok
}

// CachedHash returns the previously computed hash slot, if any. A value's
// hash, once computed, is immutable per spec §3.1.
func (h *Header) CachedHash() (uint64, bool) {
	if h.hash == nil {
		return 0, false
	}
	return *h.hash, true
}

// SetCachedHash freezes the hash slot. Calling it twice with different
// values is a programmer error (the invariant is that hashes never change);
// we keep the first value written.
func (h *Header) SetCachedHash(v uint64) {
	if h.hash == nil {
		h.hash = &v
	}
}

// singletons — process-wide, mutated only on the interpreter thread per §9.
var (
	None           = &NoneType{}
	True           = &Bool{Val: true}
	False          = &Bool{Val: false}
	StopIteration  = &StopIterationType{}
)

func init() {
	None.setClass(NoneClass)
	True.setClass(BoolClass)
	False.setClass(BoolClass)
	StopIteration.setClass(StopIterationClass)
}

// Bool wraps the two boolean singletons. Constructing additional *Bool
// values is possible in Go but every code path in this package goes through
// FromBool, preserving identity-equals-value for the two canonical ones.
type Bool struct {
	Header
	Val bool
}

// FromBool returns the canonical singleton for b.
func FromBool(b bool) *Bool {
	if b {
		return True
	}
	return False
}

// NoneType is the sole inhabitant of the None class.
type NoneType struct{ Header }

// StopIterationType is the sentinel value signaling iterator exhaustion.
// Spec §7 notes it is "a value (not strictly an error)"; FOR_ITER and the
// iterator protocol in pkg/vm treat it as data, not as a Go error.
type StopIterationType struct{ Header }
