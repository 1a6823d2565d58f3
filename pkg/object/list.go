package object

import "github.com/pkg/errors"

// List is a mutable, dynamically-sized sequence, per spec §3.3.
type List struct {
	Header
	Elems []Value
}

func NewList(elems []Value) *List {
	if elems == nil {
		elems = []Value{}
	}
	l := &List{Elems: elems}
	l.setClass(ListClass)
	return l
}

func normIndex(i, length int) int {
	if i < 0 {
		return i + length
	}
	return i
}

func init() {
	ListClass.Slots = OpSlots{
		Add: func(a, b Value) (Value, error) {
			x, okx := a.(*List)
			y, oky := b.(*List)
			if !okx || !oky {
				return nil, errors.New("can only concatenate list to list")
			}
			out := make([]Value, 0, len(x.Elems)+len(y.Elems))
			out = append(out, x.Elems...)
			out = append(out, y.Elems...)
			return NewList(out), nil
		},
		GetItem: func(self, key Value) (Value, error) {
			l := self.(*List)
			if sl, ok := key.(*Slice); ok {
				start, stop, step := sl.Resolve(len(l.Elems))
				return NewList(sliceElems(l.Elems, start, stop, step)), nil
			}
			idx, ok := key.(*Int)
			if !ok {
				return nil, errors.New("list indices must be integers")
			}
			i := normIndex(int(idx.V.Int64()), len(l.Elems))
			if i < 0 || i >= len(l.Elems) {
				return nil, errors.New("list index out of range")
			}
			return l.Elems[i], nil
		},
		SetItem: func(self, key, val Value) error {
			l := self.(*List)
			idx, ok := key.(*Int)
			if !ok {
				return errors.New("list indices must be integers")
			}
			i := normIndex(int(idx.V.Int64()), len(l.Elems))
			if i < 0 || i >= len(l.Elems) {
				return errors.New("list index out of range")
			}
			l.Elems[i] = val
			return nil
		},
		Boolean: func(self Value) (bool, error) { return len(self.(*List).Elems) != 0, nil },
		Len:     func(self Value) (int, error) { return len(self.(*List).Elems), nil },
		Iter: func(self Value) (Value, error) {
			return NewListIterator(self.(*List)), nil
		},
	}
}

func sliceElems(elems []Value, start, stop, step int) []Value {
	var out []Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, elems[i])
		}
	} else if step < 0 {
		for i := start; i > stop; i += step {
			out = append(out, elems[i])
		}
	}
	return out
}

// ListIterator walks a list's elements by index, so mutation of the list
// past the current index is visible to an in-progress iteration, matching
// the teacher's Array iteration semantics.
type ListIterator struct {
	Header
	list *List
	pos  int
}

func NewListIterator(l *List) *ListIterator {
	it := &ListIterator{list: l}
	it.setClass(IteratorClass)
	return it
}

func (it *ListIterator) next() (Value, bool, error) {
	if it.pos >= len(it.list.Elems) {
		return nil, false, nil
	}
	v := it.list.Elems[it.pos]
	it.pos++
	return v, true, nil
}
