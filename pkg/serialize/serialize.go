// Package serialize implements corvid's on-disk code-file format: a
// header-less stream of tagged literals (strings, integers, floats,
// lists, singletons, code objects, bytes) that links an offline compile to
// online execution, in the spirit of the teacher's .sg format but with a
// different, spec-frozen tag table.
package serialize

import (
	"encoding/binary"
	"io"
	"math"
	"math/big"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/object"
)

// Tag identifies the literal that follows, per spec §6.2.
type Tag byte

const (
	TagString  Tag = 0
	TagInteger Tag = 1
	TagFloat   Tag = 2
	TagList    Tag = 3
	TagTrue    Tag = 4
	TagFalse   Tag = 5
	TagNone    Tag = 6
	TagZero    Tag = 7
	TagCode    Tag = 8
	TagBytes   Tag = 9
)

// Writer serializes corvid values into the tagged-literal wire format.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Err() error { return w.err }

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

func (w *Writer) writeTag(t Tag) { w.write([]byte{byte(t)}) }

func (w *Writer) writeU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.write(buf[:])
}

// WriteValue dispatches on concrete value kind and writes the tagged
// literal for it, recursing into List elements and Code payloads.
func (w *Writer) WriteValue(v object.Value) error {
	switch t := v.(type) {
	case *object.Str:
		w.writeTag(TagString)
		w.writeU64(uint64(len(t.Val)))
		w.write([]byte(t.Val))
	case *object.Int:
		if t.Sign() == 0 {
			w.writeTag(TagZero)
			break
		}
		w.writeTag(TagInteger)
		w.writeBigInt(t.V)
	case *object.Float:
		w.writeTag(TagFloat)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t.Val))
		w.write(buf[:])
	case *object.List:
		w.writeTag(TagList)
		w.writeU64(uint64(len(t.Elems)))
		for _, e := range t.Elems {
			if err := w.WriteValue(e); err != nil {
				return err
			}
		}
	case *object.Bool:
		if t.Val {
			w.writeTag(TagTrue)
		} else {
			w.writeTag(TagFalse)
		}
	case *object.NoneType:
		w.writeTag(TagNone)
	case *object.Bytes:
		w.writeTag(TagBytes)
		w.writeU64(uint64(len(t.Val)))
		w.write(t.Val)
	case *object.Code:
		w.writeTag(TagCode)
		if err := w.writeCode(t); err != nil {
			return err
		}
	default:
		return errors.Errorf("serialize: %s is not a serializable literal", v.Class().Name)
	}
	return w.err
}

func (w *Writer) writeBigInt(v *big.Int) {
	sign := byte('+')
	abs := v
	if v.Sign() < 0 {
		sign = '-'
		abs = new(big.Int).Neg(v)
	}
	limbs := toLimbs(abs)
	w.writeU64(uint64(len(limbs)))
	w.write([]byte{sign})
	for _, limb := range limbs {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], limb)
		w.write(buf[:])
	}
}

// toLimbs splits abs into 16-bit little-endian-ordered limbs, least
// significant first, per §6.2's "16-bit limbs" integer encoding.
func toLimbs(abs *big.Int) []uint16 {
	if abs.Sign() == 0 {
		return nil
	}
	bytesLE := abs.Bytes() // big-endian from big.Int
	// reverse to little-endian byte order
	n := len(bytesLE)
	le := make([]byte, n)
	for i, b := range bytesLE {
		le[n-1-i] = b
	}
	if len(le)%2 != 0 {
		le = append(le, 0)
	}
	limbs := make([]uint16, len(le)/2)
	for i := range limbs {
		limbs[i] = binary.LittleEndian.Uint16(le[i*2 : i*2+2])
	}
	return limbs
}

func fromLimbs(limbs []uint16, sign byte) *big.Int {
	le := make([]byte, len(limbs)*2)
	for i, limb := range limbs {
		binary.LittleEndian.PutUint16(le[i*2:i*2+2], limb)
	}
	n := len(le)
	be := make([]byte, n)
	for i, b := range le {
		be[n-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	if sign == '-' {
		v.Neg(v)
	}
	return v
}

func (w *Writer) writeCode(c *object.Code) error {
	if err := w.WriteValue(sliceToList(c.Consts)); err != nil {
		return err
	}
	if err := w.WriteValue(stringsToList(c.Names)); err != nil {
		return err
	}
	if err := w.WriteValue(stringsToList(c.Varnames)); err != nil {
		return err
	}
	w.writeTag(TagString)
	w.writeU64(uint64(len(c.Name)))
	w.write([]byte(c.Name))
	w.writeU64(uint64(c.NumLocals))
	if c.IsGenerator {
		w.writeTag(TagTrue)
	} else {
		w.writeTag(TagFalse)
	}
	w.writeTag(TagBytes)
	raw := c.Bytecode.Encode()
	w.writeU64(uint64(len(raw)))
	w.write(raw)
	return w.err
}

func sliceToList(vs []object.Value) *object.List { return object.NewList(append([]object.Value(nil), vs...)) }

func stringsToList(ss []string) *object.List {
	out := make([]object.Value, len(ss))
	for i, s := range ss {
		out[i] = object.StrIntern(s)
	}
	return object.NewList(out)
}
