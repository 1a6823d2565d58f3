package object

import "github.com/kristofer/corvid/pkg/bytecode"

// Code is the compiled-function value from spec §3.3/§4.6: a raw
// instruction stream (pkg/bytecode) plus everything the interpreter needs
// to execute it — constants, name tables, and metadata. It is immutable
// once produced by the compiler or deserialized by pkg/serialize.
type Code struct {
	Header

	Name        string
	Bytecode    *bytecode.Bytecode
	Consts      []Value
	Names       []string // global/attribute names referenced by LOAD_NAME etc.
	Varnames    []string // local variable names, index-addressed by LOAD_FAST
	NumLocals   int
	IsGenerator bool
	Scope       string // "module", "function", "class" — diagnostic only
}

func NewCode(name string, bc *bytecode.Bytecode, consts []Value, names, varnames []string) *Code {
	c := &Code{
		Name:      name,
		Bytecode:  bc,
		Consts:    consts,
		Names:     names,
		Varnames:  varnames,
		NumLocals: len(varnames),
	}
	c.setClass(CodeClass)
	return c
}

// Equal implements the structural-equality semantics §3.3 requires for
// code objects produced by independent compiles of identical source (used
// by the serialization round-trip tests).
func (c *Code) Equal(other *Code) bool {
	if c.Name != other.Name || c.IsGenerator != other.IsGenerator {
		return false
	}
	if !c.Bytecode.Equal(other.Bytecode) {
		return false
	}
	if len(c.Consts) != len(other.Consts) || len(c.Names) != len(other.Names) || len(c.Varnames) != len(other.Varnames) {
		return false
	}
	for i := range c.Names {
		if c.Names[i] != other.Names[i] {
			return false
		}
	}
	for i := range c.Varnames {
		if c.Varnames[i] != other.Varnames[i] {
			return false
		}
	}
	for i := range c.Consts {
		if !constEqual(c.Consts[i], other.Consts[i]) {
			return false
		}
	}
	return true
}

// constEqual compares the literal constant kinds the compiler and
// pkg/serialize can produce. It does not attempt general value equality
// (that requires a Caller for user __eq__ overrides, which constants never
// have).
func constEqual(a, b Value) bool {
	switch x := a.(type) {
	case *Int:
		y, ok := b.(*Int)
		return ok && x.V.Cmp(y.V) == 0
	case *Float:
		y, ok := b.(*Float)
		return ok && x.Val == y.Val
	case *Str:
		y, ok := b.(*Str)
		return ok && x.Val == y.Val
	case *Bytes:
		y, ok := b.(*Bytes)
		return ok && string(x.Val) == string(y.Val)
	case *NoneType:
		_, ok := b.(*NoneType)
		return ok
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.Val == y.Val
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !constEqual(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Code:
		y, ok := b.(*Code)
		return ok && x.Equal(y)
	default:
		return a == b
	}
}
