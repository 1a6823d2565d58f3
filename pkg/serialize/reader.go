package serialize

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/object"
)

// Reader deserializes the tagged-literal wire format back into corvid
// values. Malformed input is returned as an error wrapped with
// github.com/pkg/errors (message prefix "serialize:"), so the originating
// io error is preserved. Neither the reader nor its callers turn it into a
// pkg/vm RuntimeError of kind SerializationError.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

func (r *Reader) readByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "serialize: read tag")
	}
	return buf[0], nil
}

func (r *Reader) readU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "serialize: read u64")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (r *Reader) readN(n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, errors.Wrap(err, "serialize: read payload")
	}
	return buf, nil
}

// ReadValue parses the next tagged literal.
func (r *Reader) ReadValue() (object.Value, error) {
	tagByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch Tag(tagByte) {
	case TagString:
		n, err := r.readU64()
		if err != nil {
			return nil, err
		}
		b, err := r.readN(n)
		if err != nil {
			return nil, err
		}
		return object.StrIntern(string(b)), nil
	case TagInteger:
		n, err := r.readU64()
		if err != nil {
			return nil, err
		}
		signByte, err := r.readByte()
		if err != nil {
			return nil, err
		}
		limbs := make([]uint16, n)
		for i := range limbs {
			lb, err := r.readN(2)
			if err != nil {
				return nil, err
			}
			limbs[i] = binary.LittleEndian.Uint16(lb)
		}
		return object.NewIntFromBig(fromLimbs(limbs, signByte)), nil
	case TagFloat:
		b, err := r.readN(8)
		if err != nil {
			return nil, err
		}
		return object.NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case TagList:
		n, err := r.readU64()
		if err != nil {
			return nil, err
		}
		elems := make([]object.Value, n)
		for i := range elems {
			v, err := r.ReadValue()
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return object.NewList(elems), nil
	case TagTrue:
		return object.True, nil
	case TagFalse:
		return object.False, nil
	case TagNone:
		return object.None, nil
	case TagZero:
		return object.NewInt(0), nil
	case TagBytes:
		n, err := r.readU64()
		if err != nil {
			return nil, err
		}
		b, err := r.readN(n)
		if err != nil {
			return nil, err
		}
		return object.NewBytes(b), nil
	case TagCode:
		return r.readCode()
	default:
		return nil, errors.Errorf("serialize: unknown tag %d", tagByte)
	}
}

func (r *Reader) readCode() (*object.Code, error) {
	consts, err := r.readListValue()
	if err != nil {
		return nil, err
	}
	names, err := r.readListOfStrings()
	if err != nil {
		return nil, err
	}
	varnames, err := r.readListOfStrings()
	if err != nil {
		return nil, err
	}
	nameTag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if Tag(nameTag) != TagString {
		return nil, errors.New("serialize: expected STRING tag for code name")
	}
	nlen, err := r.readU64()
	if err != nil {
		return nil, err
	}
	nameBytes, err := r.readN(nlen)
	if err != nil {
		return nil, err
	}
	numLocals, err := r.readU64()
	if err != nil {
		return nil, err
	}
	genTag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	isGenerator := Tag(genTag) == TagTrue
	bcTag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if Tag(bcTag) != TagBytes {
		return nil, errors.New("serialize: expected BYTES tag for instruction stream")
	}
	blen, err := r.readU64()
	if err != nil {
		return nil, err
	}
	raw, err := r.readN(blen)
	if err != nil {
		return nil, err
	}
	bc, err := bytecode.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(err, "serialize: decode instruction stream")
	}

	code := object.NewCode(string(nameBytes), bc, consts, names, varnames)
	code.NumLocals = int(numLocals)
	code.IsGenerator = isGenerator
	return code, nil
}

func (r *Reader) readListValue() ([]object.Value, error) {
	v, err := r.ReadValue()
	if err != nil {
		return nil, err
	}
	l, ok := v.(*object.List)
	if !ok {
		return nil, errors.New("serialize: expected LIST tag")
	}
	return l.Elems, nil
}

func (r *Reader) readListOfStrings() ([]string, error) {
	elems, err := r.readListValue()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(*object.Str)
		if !ok {
			return nil, errors.New("serialize: expected STRING element")
		}
		out[i] = s.Val
	}
	return out, nil
}
