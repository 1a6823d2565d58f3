package serialize

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/object"
)

func roundTrip(t *testing.T, v object.Value) object.Value {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteValue(v); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := r.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	cases := []object.Value{
		object.NewStr("hello, corvid"),
		object.NewStr(""),
		object.NewInt(0),
		object.NewInt(-42),
		object.NewFloat(3.14159),
		object.True,
		object.False,
		object.None,
		object.NewBytes([]byte{0x00, 0xff, 0x10}),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if !constEqualForTest(v, got) {
			t.Errorf("round trip of %#v produced %#v", v, got)
		}
	}
}

// TestRoundTripBigInt exercises an integer too wide for int64, per spec
// §3.1, to confirm the 16-bit-limb encoding preserves magnitude and sign.
func TestRoundTripBigInt(t *testing.T) {
	huge := new(big.Int).Exp(big.NewInt(2), big.NewInt(256), nil)
	huge.Neg(huge)
	v := object.NewIntFromBig(huge)
	got := roundTrip(t, v)
	gotInt, ok := got.(*object.Int)
	if !ok {
		t.Fatalf("round trip produced %T, want *object.Int", got)
	}
	if gotInt.V.Cmp(huge) != 0 {
		t.Errorf("round trip of -2**256 produced %s", gotInt.V)
	}
}

func TestRoundTripList(t *testing.T) {
	v := object.NewList([]object.Value{
		object.NewInt(1),
		object.NewStr("two"),
		object.NewList([]object.Value{object.NewInt(3), object.NewInt(4)}),
	})
	got := roundTrip(t, v)
	if !constEqualForTest(v, got) {
		t.Errorf("round trip of nested list mismatched: got %#v", got)
	}
}

// TestRoundTripCode exercises §6.2's code-object wire format end to end,
// including a nested code object in the constant pool (the shape a
// compiled method produces).
func TestRoundTripCode(t *testing.T) {
	inner := object.NewCode("inner", &bytecode.Bytecode{
		Instructions: []bytecode.Instruction{
			{Op: bytecode.LOAD_CONST, Operand: 0},
			{Op: bytecode.RETURN_VALUE},
		},
	}, []object.Value{object.NewInt(7)}, nil, nil)

	outer := object.NewCode("outer", &bytecode.Bytecode{
		Instructions: []bytecode.Instruction{
			{Op: bytecode.LOAD_CONST, Operand: 0},
			{Op: bytecode.MAKE_FUNCTION},
			{Op: bytecode.RETURN_VALUE},
		},
	}, []object.Value{inner}, []string{"g"}, []string{"x", "y"})
	outer.IsGenerator = false

	got := roundTrip(t, outer)
	gotCode, ok := got.(*object.Code)
	if !ok {
		t.Fatalf("round trip produced %T, want *object.Code", got)
	}
	if !outer.Equal(gotCode) {
		t.Errorf("round-tripped code object not structurally equal to original")
	}
}

// constEqualForTest mirrors object.Code's unexported constEqual closely
// enough for the scalar/list cases this test needs, without reaching into
// pkg/object internals from an external test package.
func constEqualForTest(a, b object.Value) bool {
	switch x := a.(type) {
	case *object.Int:
		y, ok := b.(*object.Int)
		return ok && x.V.Cmp(y.V) == 0
	case *object.Float:
		y, ok := b.(*object.Float)
		return ok && x.Val == y.Val
	case *object.Str:
		y, ok := b.(*object.Str)
		return ok && x.Val == y.Val
	case *object.Bytes:
		y, ok := b.(*object.Bytes)
		return ok && bytes.Equal(x.Val, y.Val)
	case *object.Bool:
		y, ok := b.(*object.Bool)
		return ok && x.Val == y.Val
	case *object.NoneType:
		_, ok := b.(*object.NoneType)
		return ok
	case *object.List:
		y, ok := b.(*object.List)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !constEqualForTest(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
