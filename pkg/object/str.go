package object

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Str is an immutable string value. Short strings and every string literal
// produced by the compiler are interned (§3.3: "strings are interned;
// identity implies equality for interned strings").
type Str struct {
	Header
	Val string
}

var (
	internMu    sync.Mutex
	internTable = make(map[string]*Str)
)

// StrIntern returns the canonical *Str for s, allocating and registering it
// on first use.
func StrIntern(s string) *Str {
	internMu.Lock()
	defer internMu.Unlock()
	if v, ok := internTable[s]; ok {
		return v
	}
	v := &Str{Val: s}
	v.setClass(StrClass)
	internTable[s] = v
	return v
}

// NewStr builds a non-interned string, for runtime-computed values (e.g.
// concatenation results) where interning every intermediate would be
// wasteful. Equality still compares by value, not identity, for these.
func NewStr(s string) *Str {
	v := &Str{Val: s}
	v.setClass(StrClass)
	return v
}

func strOperand(v Value) (string, bool) {
	s, ok := v.(*Str)
	if !ok {
		return "", false
	}
	return s.Val, ok
}

func init() {
	StrClass.Slots = OpSlots{
		Add: func(a, b Value) (Value, error) {
			x, okx := strOperand(a)
			y, oky := strOperand(b)
			if !okx || !oky {
				return nil, errors.New("can only concatenate str to str")
			}
			return NewStr(x + y), nil
		},
		Mul: func(a, b Value) (Value, error) {
			x, okx := strOperand(a)
			n, okn := b.(*Int)
			if !okx || !okn {
				return nil, errors.New("unsupported operand type(s) for *")
			}
			count := int(n.V.Int64())
			if count < 0 {
				count = 0
			}
			return NewStr(strings.Repeat(x, count)), nil
		},
		Eq: func(a, b Value) (Value, error) {
			x, okx := strOperand(a)
			y, oky := strOperand(b)
			if !okx || !oky {
				return False, nil
			}
			return FromBool(x == y), nil
		},
		Lt: func(a, b Value) (Value, error) { return strCompare(a, b, func(c int) bool { return c < 0 }) },
		Le: func(a, b Value) (Value, error) { return strCompare(a, b, func(c int) bool { return c <= 0 }) },
		Gt: func(a, b Value) (Value, error) { return strCompare(a, b, func(c int) bool { return c > 0 }) },
		Ge: func(a, b Value) (Value, error) { return strCompare(a, b, func(c int) bool { return c >= 0 }) },
		Contains: func(a, b Value) (Value, error) {
			x, okx := strOperand(a)
			y, oky := strOperand(b)
			if !okx || !oky {
				return nil, errors.New("'in' requires str operands")
			}
			return FromBool(strings.Contains(x, y)), nil
		},
		GetItem: func(self, key Value) (Value, error) {
			s := self.(*Str).Val
			runes := []rune(s)
			idx, ok := key.(*Int)
			if !ok {
				return nil, errors.New("string indices must be integers")
			}
			i := int(idx.V.Int64())
			if i < 0 {
				i += len(runes)
			}
			if i < 0 || i >= len(runes) {
				return nil, errors.New("string index out of range")
			}
			return StrIntern(string(runes[i])), nil
		},
		Boolean: func(self Value) (bool, error) { return len(self.(*Str).Val) != 0, nil },
		Hash:    func(self Value) (uint64, error) { return fnv64(self.(*Str).Val), nil },
		Len:     func(self Value) (int, error) { return len([]rune(self.(*Str).Val)), nil },
		Str:     func(self Value) (string, error) { return self.(*Str).Val, nil },
		Repr:    func(self Value) (string, error) { return strconvQuote(self.(*Str).Val), nil },
		Iter: func(self Value) (Value, error) {
			return NewStrIterator(self.(*Str)), nil
		},
	}
}

func strCompare(a, b Value, pred func(int) bool) (Value, error) {
	x, okx := strOperand(a)
	y, oky := strOperand(b)
	if !okx || !oky {
		return nil, errors.New("unsupported operand type(s) for comparison")
	}
	return FromBool(pred(strings.Compare(x, y))), nil
}

func strconvQuote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("\\'")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// StrIterator walks a string's runes in order.
type StrIterator struct {
	Header
	runes []rune
	pos   int
}

func NewStrIterator(s *Str) *StrIterator {
	it := &StrIterator{runes: []rune(s.Val)}
	it.setClass(IteratorClass)
	return it
}

func (it *StrIterator) next() (Value, bool, error) {
	if it.pos >= len(it.runes) {
		return nil, false, nil
	}
	r := it.runes[it.pos]
	it.pos++
	return StrIntern(string(r)), true, nil
}

// sortStrings sorts ss in place. It is unexported, and nothing in
// pkg/object calls it.
func sortStrings(ss []string) { sort.Strings(ss) }
