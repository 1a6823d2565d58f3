package object

import (
	"math"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// Float is an IEEE-754 double, per spec §3.3.
type Float struct {
	Header
	Val float64
}

func NewFloat(v float64) *Float {
	f := &Float{Val: v}
	f.setClass(FloatClass)
	return f
}

func floatOperands(a, b Value) (float64, float64, bool) {
	x, okx := toFloat(a)
	y, oky := toFloat(b)
	return x, y, okx && oky
}

func toFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case *Float:
		return t.Val, true
	case *Int:
		f, _ := new(big.Float).SetInt(t.V).Float64()
		return f, true
	default:
		return 0, false
	}
}

func init() {
	FloatClass.Slots = OpSlots{
		Add: func(a, b Value) (Value, error) { return floatBinary(a, b, func(x, y float64) float64 { return x + y }) },
		Sub: func(a, b Value) (Value, error) { return floatBinary(a, b, func(x, y float64) float64 { return x - y }) },
		Mul: func(a, b Value) (Value, error) { return floatBinary(a, b, func(x, y float64) float64 { return x * y }) },
		TrueDiv: func(a, b Value) (Value, error) {
			x, y, ok := floatOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for /")
			}
			if y == 0 {
				return nil, errors.New("float division by zero")
			}
			return NewFloat(x / y), nil
		},
		FloorDiv: func(a, b Value) (Value, error) {
			x, y, ok := floatOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for //")
			}
			return NewFloat(math.Floor(x / y)), nil
		},
		Mod: func(a, b Value) (Value, error) {
			x, y, ok := floatOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for %")
			}
			return NewFloat(math.Mod(x, y)), nil
		},
		Pow: func(a, b Value) (Value, error) {
			x, y, ok := floatOperands(a, b)
			if !ok {
				return nil, errors.New("unsupported operand type for **")
			}
			return NewFloat(math.Pow(x, y)), nil
		},
		Eq: func(a, b Value) (Value, error) {
			x, y, ok := floatOperands(a, b)
			if !ok {
				return False, nil
			}
			return FromBool(x == y), nil
		},
		Lt: func(a, b Value) (Value, error) { return floatCompare(a, b, func(x, y float64) bool { return x < y }) },
		Le: func(a, b Value) (Value, error) { return floatCompare(a, b, func(x, y float64) bool { return x <= y }) },
		Gt: func(a, b Value) (Value, error) { return floatCompare(a, b, func(x, y float64) bool { return x > y }) },
		Ge: func(a, b Value) (Value, error) { return floatCompare(a, b, func(x, y float64) bool { return x >= y }) },
		Pos: func(self Value) (Value, error) { return self, nil },
		Neg: func(self Value) (Value, error) { return NewFloat(-self.(*Float).Val), nil },
		Boolean: func(self Value) (bool, error) { return self.(*Float).Val != 0, nil },
		Hash: func(self Value) (uint64, error) {
			return fnv64(strconv.FormatFloat(self.(*Float).Val, 'g', -1, 64)), nil
		},
		Str:  func(self Value) (string, error) { return formatFloat(self.(*Float).Val), nil },
		Repr: func(self Value) (string, error) { return formatFloat(self.(*Float).Val), nil },
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func floatBinary(a, b Value, op func(x, y float64) float64) (Value, error) {
	x, y, ok := floatOperands(a, b)
	if !ok {
		return nil, errors.New("unsupported operand type(s) for float op")
	}
	return NewFloat(op(x, y)), nil
}

func floatCompare(a, b Value, cmp func(x, y float64) bool) (Value, error) {
	x, y, ok := floatOperands(a, b)
	if !ok {
		return nil, errors.New("unsupported operand type(s) for comparison")
	}
	return FromBool(cmp(x, y)), nil
}
