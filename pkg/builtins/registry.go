// Package builtins wires corvid's native-function surface: host
// capabilities exposed as *object.NativeFunction values, reachable the
// same way any other attribute is (§4.1's "callable iff ... native-
// function"). Grounded on the teacher's pkg/vm/primitives.go, but
// generalized from hard-coded VM dispatch into first-class values
// registered under dotted module names, and extended with drivers the
// teacher never used.
package builtins

import (
	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/object"
)

// Module is a named group of native functions (e.g. "json", "http").
type Module struct {
	Name  string
	Funcs map[string]*object.NativeFunction
}

func newModule(name string) *Module {
	return &Module{Name: name, Funcs: make(map[string]*object.NativeFunction)}
}

func (m *Module) add(name string, fn object.NativeFunc) {
	m.Funcs[name] = object.NewNativeFunction(m.Name+"."+name, fn)
}

// AsDict wraps a module's functions as a corvid dict, so `import "json"`
// style access becomes `json.get("dumps")`-free attribute-like indexing
// from the compiler's perspective: modules are plain dict values bound
// into globals under their name.
func (m *Module) AsDict() *object.Dict {
	d := object.NewDict()
	for name, fn := range m.Funcs {
		d.Set(noopCaller{}, object.StrIntern(name), fn)
	}
	return d
}

// noopCaller satisfies object.Caller for Dict.Set when no user __hash__
// override is reachable (module function names are always plain interned
// strings, whose hash never invokes user code).
type noopCaller struct{}

func (noopCaller) Invoke(object.Value, []object.Value) (object.Value, error) {
	panic("builtins: module registration must never invoke user code")
}

// Install populates globals with every native module plus the top-level
// free functions (print, range, len, ...), using bus for LOG_* output per
// §6.3's "all user-observable output flows through the event bus."
func Install(globals map[string]object.Value, bus *eventbus.Bus) {
	for name, fn := range freeFunctions(bus) {
		globals[name] = fn
	}
	// Promise is bound directly (not wrapped in a Module/dict) so
	// `Promise.resolve`/`Promise.reject` reach it via plain attribute
	// lookup on the class value itself, per §4.7.
	globals["Promise"] = object.PromiseClass
	for _, m := range []*Module{
		jsonModule(), regexModule(), cryptoModule(), compressionModule(),
		randomModule(), datetimeModule(), httpModule(), dbModule(),
		wsModule(bus), uuidModule(),
	} {
		globals[m.Name] = m.AsDict()
	}
}
