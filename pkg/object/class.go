package object

// Class is the descriptor described in spec §3.2: a name, an attribute
// table holding methods/descriptors/IIFE attributes, an ordered parent
// list, a computed MRO, a native/user-defined flag, and (via the embedded
// Header) a class pointer to its own metaclass.
//
// A Class is itself a Value — "type used as a callable" (§4.5) sends init
// through this same descriptor — so it embeds Header like every other
// value kind.
type Class struct {
	Header

	Name    string
	Members map[string]Value // methods, descriptors, IIFE attributes
	Parents []*Class
	MRO     []*Class
	Native  bool
	Slots   OpSlots

	registered bool // true once MRO has been computed; attribute table append-only after this
}

// NewClass builds an unregistered class descriptor. Call Register (mro.go)
// once parents are final; Register computes the MRO and freezes it.
func NewClass(name string, parents []*Class, native bool) *Class {
	return &Class{
		Name:    name,
		Members: make(map[string]Value),
		Parents: parents,
		Native:  native,
	}
}

// DefineMember adds or overwrites a member during class construction. Once
// the class is registered, members may still be *added* by user code (e.g.
// `MyClass.extra = 1` at the class-object level) but never removed — there
// is no DeleteMember, matching §3.2's "deletion is not exposed".
func (c *Class) DefineMember(name string, v Value) {
	c.Members[name] = v
}

// Member looks up a name in this class's own attribute table only (no MRO
// walk) — used by the MRO-walking step in dispatch.go.
func (c *Class) Member(name string) (Value, bool) {
	v, ok := c.Members[name]
	return v, ok
}

// IsRegistered reports whether Register has computed this class's MRO.
func (c *Class) IsRegistered() bool { return c.registered }

// Instance is a plain user-defined-class object: a class pointer plus the
// lazily allocated attribute/method-cache maps inherited from Header. There
// is no separate field array (unlike the teacher's fixed-offset Instance) —
// §3.1 stores instance data in a name-keyed attribute mapping, not a slot
// array, since the object model must support arbitrary attribute
// assignment discovered through a dynamic MRO rather than a compile-time
// field layout.
type Instance struct {
	Header
}

// NewInstance allocates a bare instance of class c. User-defined classes
// then invoke __init__ via attribute lookup (§4.5); native classes
// construct their own payload-bearing types instead of using Instance.
func NewInstance(c *Class) *Instance {
	inst := &Instance{}
	inst.setClass(c)
	return inst
}

// root classes, preloaded with the trivial MRO described in §4.3:
// "Native root classes preload a trivial MRO [self, object]; object has
// MRO [object]."
var (
	ObjectClass *Class
	TypeClass   *Class

	NoneClass          *Class
	BoolClass          *Class
	StopIterationClass *Class
	IntClass           *Class
	FloatClass         *Class
	StrClass           *Class
	BytesClass         *Class
	ListClass          *Class
	DictClass          *Class
	SliceClass         *Class
	CodeClass          *Class
	FrameClass         *Class
	FunctionClass      *Class
	NativeFunctionClass *Class
	BoundMethodClass   *Class
	PromiseClass       *Class
	GeneratorClass     *Class
	IteratorClass      *Class
)

func init() {
	ObjectClass = NewClass("object", nil, true)
	ObjectClass.MRO = []*Class{ObjectClass}
	ObjectClass.registered = true

	TypeClass = NewClass("type", []*Class{ObjectClass}, true)
	TypeClass.MRO = []*Class{TypeClass, ObjectClass}
	TypeClass.registered = true

	ObjectClass.setClass(TypeClass)
	TypeClass.setClass(TypeClass) // self-referential: type's class is type

	mk := func(name string) *Class {
		c := NewClass(name, []*Class{ObjectClass}, true)
		c.MRO = []*Class{c, ObjectClass}
		c.registered = true
		c.setClass(TypeClass)
		return c
	}

	NoneClass = mk("NoneType")
	BoolClass = mk("bool")
	StopIterationClass = mk("StopIteration")
	IntClass = mk("int")
	FloatClass = mk("float")
	StrClass = mk("str")
	BytesClass = mk("bytes")
	ListClass = mk("list")
	DictClass = mk("dict")
	SliceClass = mk("slice")
	CodeClass = mk("code")
	FrameClass = mk("frame")
	FunctionClass = mk("function")
	NativeFunctionClass = mk("native_function")
	BoundMethodClass = mk("bound_method")
	PromiseClass = mk("Promise")
	GeneratorClass = mk("generator")
	IteratorClass = mk("iterator")
}
