package object

// Operation slot signatures, per spec §4.1. A native class fills in the
// slots it supports; a user-defined class leaves Slots zero-valued and
// dispatch.go falls through to invoking the matching dunder attribute
// discovered via MRO walk (§4.2).
type (
	BinaryFunc  func(self, other Value) (Value, error)
	UnaryFunc   func(self Value) (Value, error)
	BoolFunc    func(self Value) (bool, error)
	HashFunc    func(self Value) (uint64, error)
	LenFunc     func(self Value) (int, error)
	StrFunc     func(self Value) (string, error)
	GetItemFunc func(self, key Value) (Value, error)
	SetItemFunc func(self, key, val Value) error
	DelItemFunc func(self, key Value) error
	// NextFunc advances an iterator. ok=false means exhausted (the caller
	// should treat this as the StopIteration value, not as err != nil).
	NextFunc func(self Value) (v Value, ok bool, err error)
)

// OpSlots is the per-kind operation table described in §4.1: "Each value
// exposes the following contract, implemented via its class's operation
// slot or by invoking a dunder attribute through the MRO."
type OpSlots struct {
	Add, Sub, Mul, MatMul, TrueDiv, FloorDiv, Mod, Pow             BinaryFunc
	And, Or, Xor, LShift, RShift                                   BinaryFunc
	Eq, Ne, Lt, Le, Gt, Ge                                         BinaryFunc
	Contains                                                       BinaryFunc
	GetItem                                                        GetItemFunc
	SetItem                                                        SetItemFunc
	DelItem                                                        DelItemFunc

	Pos, Neg, Invert BinaryUnary
	Boolean          BoolFunc
	Hash             HashFunc
	Len              LenFunc
	Iter             UnaryFunc
	Next             NextFunc
	Reversed         UnaryFunc
	Str, Repr        StrFunc
	Serialize        UnaryFunc
}

// BinaryUnary is the signature for the three unary numeric ops (pos, neg,
// invert) — named to avoid clashing with UnaryFunc, which is reused for
// iter/reversed/serialize where the result is any Value, not necessarily
// of the same class as self.
type BinaryUnary func(self Value) (Value, error)
