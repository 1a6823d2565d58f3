package object

import "github.com/pkg/errors"

// dictEntry is one slot in a hash bucket; collisions are resolved by a
// linear scan comparing keys with Eq, mirroring how a handle-based runtime
// without a native Go-comparable key type must implement hashing.
type dictEntry struct {
	key Value
	val Value
}

// Dict is an insertion-ordered mapping, per spec §3.3 ("iteration order is
// insertion order, matching the host language the spec was distilled
// from").
type Dict struct {
	Header
	buckets map[uint64][]dictEntry
	order   []Value
}

func NewDict() *Dict {
	d := &Dict{buckets: make(map[uint64][]dictEntry)}
	d.setClass(DictClass)
	return d
}

func (d *Dict) hashOf(c Caller, k Value) (uint64, error) {
	class := k.Class()
	if class.Native && class.Slots.Hash != nil {
		return class.Slots.Hash(k)
	}
	method, err := GetAttr(c, k, "__hash__")
	if err != nil {
		return 0, errors.Errorf("unhashable type: %s", class.Name)
	}
	v, err := c.Invoke(method, nil)
	if err != nil {
		return 0, err
	}
	i, ok := v.(*Int)
	if !ok {
		return 0, errors.New("__hash__ must return an int")
	}
	return i.V.Uint64(), nil
}

func (d *Dict) Get(c Caller, k Value) (Value, bool, error) {
	h, err := d.hashOf(c, k)
	if err != nil {
		return nil, false, err
	}
	for _, e := range d.buckets[h] {
		eq, err := Eq(c, e.key, k)
		if err != nil {
			return nil, false, err
		}
		if Truthy(eq) {
			return e.val, true, nil
		}
	}
	return nil, false, nil
}

func (d *Dict) Set(c Caller, k, v Value) error {
	h, err := d.hashOf(c, k)
	if err != nil {
		return err
	}
	bucket := d.buckets[h]
	for i, e := range bucket {
		eq, err := Eq(c, e.key, k)
		if err != nil {
			return err
		}
		if Truthy(eq) {
			bucket[i].val = v
			return nil
		}
	}
	d.buckets[h] = append(bucket, dictEntry{key: k, val: v})
	d.order = append(d.order, k)
	return nil
}

func (d *Dict) Delete(c Caller, k Value) (bool, error) {
	h, err := d.hashOf(c, k)
	if err != nil {
		return false, err
	}
	bucket := d.buckets[h]
	for i, e := range bucket {
		eq, err := Eq(c, e.key, k)
		if err != nil {
			return false, err
		}
		if Truthy(eq) {
			d.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			for j, ok := range d.order {
				keq, _ := Eq(c, ok, k)
				if Truthy(keq) {
					d.order = append(d.order[:j], d.order[j+1:]...)
					break
				}
			}
			return true, nil
		}
	}
	return false, nil
}

func (d *Dict) Len() int {
	return len(d.order)
}

func (d *Dict) Keys() []Value { return d.order }

// Dict intentionally has no GetItem/SetItem native slots: key hashing may
// invoke a user-defined __hash__, which needs a Caller. pkg/vm dispatches
// dict subscript ops directly against Get/Set/Delete instead of through
// OpSlots, passing itself as the Caller.
func init() {
	DictClass.Slots = OpSlots{
		Boolean: func(self Value) (bool, error) { return self.(*Dict).Len() != 0, nil },
		Len:     func(self Value) (int, error) { return self.(*Dict).Len(), nil },
	}
}

// DictIterator walks a dict's keys in insertion order.
type DictIterator struct {
	Header
	dict *Dict
	pos  int
}

func NewDictIterator(d *Dict) *DictIterator {
	it := &DictIterator{dict: d}
	it.setClass(IteratorClass)
	return it
}

func (it *DictIterator) next() (Value, bool, error) {
	if it.pos >= len(it.dict.order) {
		return nil, false, nil
	}
	k := it.dict.order[it.pos]
	it.pos++
	return k, true, nil
}
