package object

// Function is a user-defined callable closing over a Code object and the
// globals namespace of its defining module, per spec §3.3/§4.5.
type Function struct {
	Header

	Name     string
	Code     *Code
	Globals  map[string]Value
	Defaults []Value
	// Closure is never populated: a nested function does not capture its
	// enclosing function's locals, and a free name inside it resolves
	// through LOAD_NAME to Globals and then builtins.
	Closure map[string]Value
}

func NewFunction(name string, code *Code, globals map[string]Value) *Function {
	f := &Function{Name: name, Code: code, Globals: globals}
	f.setClass(FunctionClass)
	return f
}

// NativeFunc is the Go-implemented body of a NativeFunction: it receives a
// Caller so builtins that need to invoke back into corvid callables (e.g.
// len() and str() calling a user class's __len__/__str__, or the Promise
// methods scheduling reactions) can do so.
type NativeFunc func(c Caller, args []Value) (Value, error)

// NativeFunction wraps a Go function as a corvid callable, per spec
// §4.11's native builtin module mechanics — the generalization of the
// teacher's hard-coded primitive dispatch into first-class, attribute-
// lookup-reachable values.
type NativeFunction struct {
	Header

	Name string
	Fn   NativeFunc
}

func NewNativeFunction(name string, fn NativeFunc) *NativeFunction {
	v := &NativeFunction{Name: name, Fn: fn}
	v.setClass(NativeFunctionClass)
	return v
}
