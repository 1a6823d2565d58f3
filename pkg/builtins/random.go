package builtins

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/object"
)

// randomModule mirrors the teacher's randomInt/randomFloat/randomBytes
// trio, using crypto/rand (as the teacher did) rather than math/rand.
func randomModule() *Module {
	m := newModule("random")

	m.add("int", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 2 {
			return nil, errArgCount("random.int", 2, len(args))
		}
		lo, ok1 := args[0].(*object.Int)
		hi, ok2 := args[1].(*object.Int)
		if !ok1 || !ok2 {
			return nil, typeErr("random.int() expects two int arguments")
		}
		span := new(big.Int).Sub(hi.V, lo.V)
		span.Add(span, big.NewInt(1))
		if span.Sign() <= 0 {
			return nil, errors.New("ValueError: random.int() requires max >= min")
		}
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return nil, errors.Wrap(err, "random.int")
		}
		return object.NewIntFromBig(new(big.Int).Add(lo.V, n)), nil
	})

	m.add("float", func(c object.Caller, args []object.Value) (object.Value, error) {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, errors.Wrap(err, "random.float")
		}
		u := binary.LittleEndian.Uint64(buf[:]) >> 11 // 53 significant bits
		return object.NewFloat(float64(u) / float64(1<<53)), nil
	})

	m.add("bytes", func(c object.Caller, args []object.Value) (object.Value, error) {
		n, ok := args[0].(*object.Int)
		if !ok {
			return nil, typeErr("random.bytes() expects an int length")
		}
		buf := make([]byte, n.V.Int64())
		if _, err := rand.Read(buf); err != nil {
			return nil, errors.Wrap(err, "random.bytes")
		}
		return object.NewBytes(buf), nil
	})

	return m
}
