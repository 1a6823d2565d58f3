package object

import "fmt"

// BoundMethod is the pair (owner, callable) from §4.2: invoking it with
// args calls the underlying callable with (owner, args...).
type BoundMethod struct {
	Header
	Owner      Value
	Underlying Value
}

// NewBoundMethod wraps owner/underlying into a callable bound-method value.
func NewBoundMethod(owner, underlying Value) *BoundMethod {
	bm := &BoundMethod{Owner: owner, Underlying: underlying}
	bm.setClass(BoundMethodClass)
	return bm
}

// IIFE marks a class attribute that should be invoked with (owner) the
// first time it is read through an instance and cached — "invoke first
// field expression" per the glossary.
type IIFE struct {
	Header
	Fn Value
}

func NewIIFE(fn Value) *IIFE {
	v := &IIFE{Fn: fn}
	v.setClass(ObjectClass)
	return v
}

// notFound is the internal "not found" signal from §4.2 step 5; callers in
// pkg/vm transform it into an AttributeError.
type notFoundSignal struct{}

var errAttrNotFound = notFoundSignal{}

func (notFoundSignal) Error() string { return "attribute not found" }

// Caller is satisfied by anything invokable: used by GetAttr to run
// __getattr__/IIFE attributes without importing pkg/vm (which would create
// an import cycle). pkg/vm supplies the concrete Invoke implementation.
type Caller interface {
	Invoke(callable Value, args []Value) (Value, error)
}

// GetAttr implements the lookup algorithm of §4.2 for `obj.attr`.
func GetAttr(c Caller, obj Value, attr string) (Value, error) {
	class := obj.Class()

	// Attribute access on a class value itself (e.g. `Promise.resolve`)
	// resolves through that class's own MRO — its static namespace — not
	// its metaclass's; every other value kind keeps looking through
	// obj.Class().MRO as usual.
	mro := class.MRO
	if self, ok := obj.(*Class); ok {
		mro = self.MRO
	}

	if !class.Native {
		if getattr, ok := findInMRO(class, "__getattr__"); ok {
			bound := NewBoundMethod(obj, getattr)
			v, err := c.Invoke(bound, []Value{StrIntern(attr)})
			if err == nil && v != nil {
				return v, nil
			}
		}
	}

	if hdr := header(obj); hdr != nil {
		if v, ok := hdr.RawAttr(attr); ok {
			if iife, ok := v.(*IIFE); ok {
				result, err := c.Invoke(iife.Fn, []Value{obj})
				if err != nil {
					return nil, err
				}
				hdr.Attrs()[attr] = result
				return result, nil
			}
			return v, nil
		}
		if v, ok := hdr.RawMethodCache(attr); ok {
			return NewBoundMethod(obj, v), nil
		}
	}

	for _, k := range mro {
		if v, ok := k.Member(attr); ok {
			if isCallable(v) {
				if hdr := header(obj); hdr != nil {
					hdr.MethodCache()[attr] = v
				}
				return NewBoundMethod(obj, v), nil
			}
			if iife, ok := v.(*IIFE); ok {
				result, err := c.Invoke(iife.Fn, []Value{obj})
				if err != nil {
					return nil, err
				}
				if hdr := header(obj); hdr != nil {
					hdr.Attrs()[attr] = result
				}
				return result, nil
			}
			if hdr := header(obj); hdr != nil {
				hdr.Attrs()[attr] = v
			}
			return v, nil
		}
	}

	// A native module is a Dict bound into globals by pkg/builtins, so
	// `json.dumps` falls back to the entry keyed by the attribute name.
	if d, ok := obj.(*Dict); ok {
		if v, found, err := d.Get(c, StrIntern(attr)); err == nil && found {
			return v, nil
		}
	}

	return nil, errAttrNotFound
}

// IsAttrNotFound reports whether err is the "not found" signal from
// GetAttr, letting pkg/vm translate it into an AttributeError with the
// attribute name and receiver it has in scope.
func IsAttrNotFound(err error) bool {
	_, ok := err.(notFoundSignal)
	return ok
}

func findInMRO(class *Class, name string) (Value, bool) {
	for _, k := range class.MRO {
		if v, ok := k.Member(name); ok {
			return v, true
		}
	}
	return nil, false
}

func isCallable(v Value) bool {
	switch v.(type) {
	case *Function, *NativeFunction, *BoundMethod, *Class:
		return true
	default:
		return false
	}
}

// header extracts the embedded Header pointer for value kinds that carry
// one, so GetAttr can read/write the instance attribute table and method
// cache uniformly.
func header(v Value) *Header {
	switch t := v.(type) {
	case *Instance:
		return &t.Header
	case *Int:
		return &t.Header
	case *Float:
		return &t.Header
	case *Str:
		return &t.Header
	case *Bytes:
		return &t.Header
	case *List:
		return &t.Header
	case *Dict:
		return &t.Header
	case *Slice:
		return &t.Header
	case *Class:
		return &t.Header
	case *Function:
		return &t.Header
	case *NativeFunction:
		return &t.Header
	case *BoundMethod:
		return &t.Header
	case *Promise:
		return &t.Header
	case *Generator:
		return &t.Header
	default:
		return nil
	}
}

// SetAttr implements `obj.attr = value`. User classes may define
// __setattr__; otherwise the value lands directly in the instance
// attribute table.
func SetAttr(c Caller, obj Value, attr string, val Value) error {
	class := obj.Class()
	if !class.Native {
		if setattr, ok := findInMRO(class, "__setattr__"); ok {
			bound := NewBoundMethod(obj, setattr)
			_, err := c.Invoke(bound, []Value{StrIntern(attr), val})
			return err
		}
	}
	hdr := header(obj)
	if hdr == nil {
		return fmt.Errorf("object of type %s does not support attribute assignment", class.Name)
	}
	hdr.Attrs()[attr] = val
	return nil
}

// BinaryDispatch implements §4.2's operator dispatch: "arithmetic/
// comparison slots first try the left operand's class's slot; a native
// class handles the pair directly; a user class falls back to invoking the
// named dunder via attribute lookup." slot selects the native function
// pointer for op (e.g. (*OpSlots).Add); dunder is its attribute name
// (e.g. "__add__").
func BinaryDispatch(c Caller, a, b Value, slot func(*OpSlots) BinaryFunc, dunder string) (Value, error) {
	class := a.Class()
	if class.Native {
		if fn := slot(&class.Slots); fn != nil {
			return fn(a, b)
		}
		return nil, fmt.Errorf("unsupported operand type(s) for %s: %s", dunder, class.Name)
	}
	method, err := GetAttr(c, a, dunder)
	if err != nil {
		return nil, fmt.Errorf("%s has no attribute %s", class.Name, dunder)
	}
	return c.Invoke(method, []Value{b})
}

// Eq implements equality with the §4.2 rule that "equality between handles
// of different native classes returns False without raising."
func Eq(c Caller, a, b Value) (Value, error) {
	ca, cb := a.Class(), b.Class()
	if ca.Native && cb.Native && ca != cb {
		return False, nil
	}
	return BinaryDispatch(c, a, b, func(s *OpSlots) BinaryFunc { return s.Eq }, "__eq__")
}

// Ne is the derived default `ne = not eq` (§4.1), used when a class hasn't
// overridden __ne__/Ne directly.
func Ne(c Caller, a, b Value) (Value, error) {
	if a.Class().Native {
		if fn := a.Class().Slots.Ne; fn != nil {
			return fn(a, b)
		}
	} else if _, ok := findInMRO(a.Class(), "__ne__"); ok {
		return BinaryDispatch(c, a, b, func(s *OpSlots) BinaryFunc { return s.Ne }, "__ne__")
	}
	eq, err := Eq(c, a, b)
	if err != nil {
		return nil, err
	}
	return FromBool(!Truthy(eq)), nil
}

// Lt/Le/Gt/Ge implement the remaining comparisons with the derived
// defaults from §4.1: gt = not le, ge = not lt, le = lt or eq. Classes may
// override any of them by defining the native slot or the dunder.

func Lt(c Caller, a, b Value) (Value, error) {
	return BinaryDispatch(c, a, b, func(s *OpSlots) BinaryFunc { return s.Lt }, "__lt__")
}

func Le(c Caller, a, b Value) (Value, error) {
	if hasOverride(a.Class(), func(s *OpSlots) BinaryFunc { return s.Le }, "__le__") {
		return BinaryDispatch(c, a, b, func(s *OpSlots) BinaryFunc { return s.Le }, "__le__")
	}
	lt, err := Lt(c, a, b)
	if err != nil {
		return nil, err
	}
	if Truthy(lt) {
		return True, nil
	}
	return Eq(c, a, b)
}

func Gt(c Caller, a, b Value) (Value, error) {
	if hasOverride(a.Class(), func(s *OpSlots) BinaryFunc { return s.Gt }, "__gt__") {
		return BinaryDispatch(c, a, b, func(s *OpSlots) BinaryFunc { return s.Gt }, "__gt__")
	}
	le, err := Le(c, a, b)
	if err != nil {
		return nil, err
	}
	return FromBool(!Truthy(le)), nil
}

func Ge(c Caller, a, b Value) (Value, error) {
	if hasOverride(a.Class(), func(s *OpSlots) BinaryFunc { return s.Ge }, "__ge__") {
		return BinaryDispatch(c, a, b, func(s *OpSlots) BinaryFunc { return s.Ge }, "__ge__")
	}
	lt, err := Lt(c, a, b)
	if err != nil {
		return nil, err
	}
	return FromBool(!Truthy(lt)), nil
}

func hasOverride(class *Class, slot func(*OpSlots) BinaryFunc, dunder string) bool {
	if class.Native {
		return slot(&class.Slots) != nil
	}
	_, ok := findInMRO(class, dunder)
	return ok
}

// Truthy implements the boolean unary op with the obvious native defaults;
// user classes override via __bool__ through the caller, not here, since
// Truthy has no Caller in scope in most use sites (it's only ever applied
// to values whose truthiness is already resolved, e.g. comparison results).
func Truthy(v Value) bool {
	switch t := v.(type) {
	case *Bool:
		return t.Val
	case *NoneType:
		return false
	case *Int:
		return t.Sign() != 0
	case *Float:
		return t.Val != 0
	case *Str:
		return len(t.Val) != 0
	case *Bytes:
		return len(t.Val) != 0
	case *List:
		return len(t.Elems) != 0
	case *Dict:
		return t.Len() != 0
	default:
		return true
	}
}
