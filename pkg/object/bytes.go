package object

import (
	"bytes"

	"github.com/pkg/errors"
)

// Bytes is an immutable byte string, the counterpart to Str for binary
// data — used by the serialization format (pkg/serialize) and the
// compression and random builtins.
type Bytes struct {
	Header
	Val []byte
}

func NewBytes(b []byte) *Bytes {
	v := &Bytes{Val: b}
	v.setClass(BytesClass)
	return v
}

func init() {
	BytesClass.Slots = OpSlots{
		Add: func(a, b Value) (Value, error) {
			x, okx := a.(*Bytes)
			y, oky := b.(*Bytes)
			if !okx || !oky {
				return nil, errors.New("can only concatenate bytes to bytes")
			}
			out := make([]byte, 0, len(x.Val)+len(y.Val))
			out = append(out, x.Val...)
			out = append(out, y.Val...)
			return NewBytes(out), nil
		},
		Eq: func(a, b Value) (Value, error) {
			x, okx := a.(*Bytes)
			y, oky := b.(*Bytes)
			if !okx || !oky {
				return False, nil
			}
			return FromBool(bytes.Equal(x.Val, y.Val)), nil
		},
		GetItem: func(self, key Value) (Value, error) {
			b := self.(*Bytes).Val
			idx, ok := key.(*Int)
			if !ok {
				return nil, errors.New("bytes indices must be integers")
			}
			i := int(idx.V.Int64())
			if i < 0 {
				i += len(b)
			}
			if i < 0 || i >= len(b) {
				return nil, errors.New("bytes index out of range")
			}
			return NewInt(int64(b[i])), nil
		},
		Boolean: func(self Value) (bool, error) { return len(self.(*Bytes).Val) != 0, nil },
		Len:     func(self Value) (int, error) { return len(self.(*Bytes).Val), nil },
		Hash:    func(self Value) (uint64, error) { return fnv64(string(self.(*Bytes).Val)), nil },
		Str:     func(self Value) (string, error) { return string(self.(*Bytes).Val), nil },
		Repr: func(self Value) (string, error) {
			return "b" + strconvQuote(string(self.(*Bytes).Val)), nil
		},
	}
}
