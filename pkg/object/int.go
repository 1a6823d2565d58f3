package object

import (
	"math/big"

	"github.com/pkg/errors"
)

// Int is corvid's arbitrary-precision integer, backed by math/big per
// spec §3.3 ("integers have no fixed width; overflow is not observable").
type Int struct {
	Header
	V *big.Int
}

func NewInt(v int64) *Int {
	i := &Int{V: big.NewInt(v)}
	i.setClass(IntClass)
	return i
}

func NewIntFromBig(v *big.Int) *Int {
	i := &Int{V: v}
	i.setClass(IntClass)
	return i
}

func (i *Int) Sign() int { return i.V.Sign() }

func init() {
	IntClass.Slots = OpSlots{
		Add:      func(a, b Value) (Value, error) { return intBinary(a, b, new(big.Int).Add) },
		Sub:      func(a, b Value) (Value, error) { return intBinary(a, b, new(big.Int).Sub) },
		Mul:      func(a, b Value) (Value, error) { return intBinary(a, b, new(big.Int).Mul) },
		And:      func(a, b Value) (Value, error) { return intBinary(a, b, new(big.Int).And) },
		Or:       func(a, b Value) (Value, error) { return intBinary(a, b, new(big.Int).Or) },
		Xor:      func(a, b Value) (Value, error) { return intBinary(a, b, new(big.Int).Xor) },
		Mod: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for %")
			}
			if y.Sign() == 0 {
				return nil, errors.New("integer modulo by zero")
			}
			return NewIntFromBig(new(big.Int).Mod(x, y)), nil
		},
		FloorDiv: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for //")
			}
			if y.Sign() == 0 {
				return nil, errors.New("integer division by zero")
			}
			q := new(big.Int)
			q.Div(x, y)
			return NewIntFromBig(q), nil
		},
		TrueDiv: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for /")
			}
			if y.Sign() == 0 {
				return nil, errors.New("float division by zero")
			}
			xf := new(big.Float).SetInt(x)
			yf := new(big.Float).SetInt(y)
			f, _ := new(big.Float).Quo(xf, yf).Float64()
			return NewFloat(f), nil
		},
		Pow: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for **")
			}
			return NewIntFromBig(new(big.Int).Exp(x, y, nil)), nil
		},
		LShift: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for <<")
			}
			return NewIntFromBig(new(big.Int).Lsh(x, uint(y.Int64()))), nil
		},
		RShift: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for >>")
			}
			return NewIntFromBig(new(big.Int).Rsh(x, uint(y.Int64()))), nil
		},
		Eq: func(a, b Value) (Value, error) {
			x, y, ok := intOperands(a, b)
			if !ok {
				return False, nil
			}
			return FromBool(x.Cmp(y) == 0), nil
		},
		Lt: func(a, b Value) (Value, error) { return intCompare(a, b, -1, false) },
		Le: func(a, b Value) (Value, error) { return intCompare(a, b, -1, true) },
		Gt: func(a, b Value) (Value, error) { return intCompare(a, b, 1, false) },
		Ge: func(a, b Value) (Value, error) { return intCompare(a, b, 1, true) },
		Pos: func(self Value) (Value, error) { return self, nil },
		Neg: func(self Value) (Value, error) {
			x := self.(*Int)
			return NewIntFromBig(new(big.Int).Neg(x.V)), nil
		},
		Invert: func(self Value) (Value, error) {
			x := self.(*Int)
			return NewIntFromBig(new(big.Int).Not(x.V)), nil
		},
		Boolean: func(self Value) (bool, error) { return self.(*Int).V.Sign() != 0, nil },
		Hash: func(self Value) (uint64, error) {
			return fnv64(self.(*Int).V.String()), nil
		},
		Str:  func(self Value) (string, error) { return self.(*Int).V.String(), nil },
		Repr: func(self Value) (string, error) { return self.(*Int).V.String(), nil },
	}
}

func intOperands(a, b Value) (*big.Int, *big.Int, bool) {
	x, ok1 := a.(*Int)
	y, ok2 := b.(*Int)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return x.V, y.V, true
}

func intBinary(a, b Value, op func(x, y *big.Int) *big.Int) (Value, error) {
	x, y, ok := intOperands(a, b)
	if !ok {
		return nil, errors.New("unsupported operand type(s) for integer op")
	}
	return NewIntFromBig(op(x, y)), nil
}

func intCompare(a, b Value, want int, orEqual bool) (Value, error) {
	x, y, ok := intOperands(a, b)
	if !ok {
		return nil, errors.New("unsupported operand type(s) for comparison")
	}
	cmp := x.Cmp(y)
	if orEqual && cmp == 0 {
		return True, nil
	}
	return FromBool(cmp == want), nil
}

func fnv64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
