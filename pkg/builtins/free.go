package builtins

import (
	"strings"

	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/object"
)

// freeFunctions are the global builtins every LEGB lookup falls back to,
// per §4.4's "locals, then globals, then builtins."
func freeFunctions(bus *eventbus.Bus) map[string]*object.NativeFunction {
	out := make(map[string]*object.NativeFunction)
	add := func(name string, fn object.NativeFunc) {
		out[name] = object.NewNativeFunction(name, fn)
	}

	add("print", func(c object.Caller, args []object.Value) (object.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := strOf(c, a)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		bus.Publish(eventbus.LogInfo, strings.Join(parts, " "))
		return object.None, nil
	})

	add("len", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 1 {
			return nil, errArgCount("len", 1, len(args))
		}
		class := args[0].Class()
		if class.Native && class.Slots.Len != nil {
			n, err := class.Slots.Len(args[0])
			if err != nil {
				return nil, err
			}
			return object.NewInt(int64(n)), nil
		}
		method, err := object.GetAttr(c, args[0], "__len__")
		if err != nil {
			return nil, typeErr("object of type %s has no len()", class.Name)
		}
		return c.Invoke(method, nil)
	})

	add("str", func(c object.Caller, args []object.Value) (object.Value, error) {
		s, err := strOf(c, args[0])
		if err != nil {
			return nil, err
		}
		return object.NewStr(s), nil
	})

	add("repr", func(c object.Caller, args []object.Value) (object.Value, error) {
		class := args[0].Class()
		if class.Native && class.Slots.Repr != nil {
			s, err := class.Slots.Repr(args[0])
			if err != nil {
				return nil, err
			}
			return object.NewStr(s), nil
		}
		s, err := strOf(c, args[0])
		if err != nil {
			return nil, err
		}
		return object.NewStr(s), nil
	})

	add("type", func(c object.Caller, args []object.Value) (object.Value, error) {
		return args[0].Class(), nil
	})

	add("isinstance", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) != 2 {
			return nil, errArgCount("isinstance", 2, len(args))
		}
		target, ok := args[1].(*object.Class)
		if !ok {
			return nil, typeErr("isinstance() arg 2 must be a class")
		}
		for _, k := range args[0].Class().MRO {
			if k == target {
				return object.True, nil
			}
		}
		return object.False, nil
	})

	add("range", func(c object.Caller, args []object.Value) (object.Value, error) {
		var start, stop, step int64 = 0, 0, 1
		switch len(args) {
		case 1:
			stop = intOf(args[0])
		case 2:
			start, stop = intOf(args[0]), intOf(args[1])
		case 3:
			start, stop, step = intOf(args[0]), intOf(args[1]), intOf(args[2])
		default:
			return nil, errArgCount("range", 1, len(args))
		}
		if step == 0 {
			return nil, typeErr("range() step must not be zero")
		}
		return object.NewRangeIterator(start, stop, step), nil
	})

	add("list", func(c object.Caller, args []object.Value) (object.Value, error) {
		if len(args) == 0 {
			return object.NewList(nil), nil
		}
		return drain(c, args[0])
	})

	add("input", func(c object.Caller, args []object.Value) (object.Value, error) {
		sched, ok := c.(object.PromiseScheduler)
		if !ok {
			return nil, typeErr("input: caller cannot schedule promises")
		}
		p := object.NewPromise()
		var id uint64
		id = bus.Subscribe(eventbus.Input, func(data string) {
			sched.SettlePromise(p, object.Fulfilled, object.NewStr(data))
			_ = id // see DESIGN.md: the subscription is intentionally never removed
		})
		return p, nil
	})

	return out
}

func strOf(c object.Caller, v object.Value) (string, error) {
	class := v.Class()
	if class.Native && class.Slots.Str != nil {
		return class.Slots.Str(v)
	}
	method, err := object.GetAttr(c, v, "__str__")
	if err != nil {
		return "<" + class.Name + " object>", nil
	}
	res, err := c.Invoke(method, nil)
	if err != nil {
		return "", err
	}
	s, ok := res.(*object.Str)
	if !ok {
		return "", typeErr("__str__ must return a str")
	}
	return s.Val, nil
}

func intOf(v object.Value) int64 {
	if i, ok := v.(*object.Int); ok {
		return i.V.Int64()
	}
	return 0
}

// drain materializes any iterable into a *object.List, used by list().
func drain(c object.Caller, v object.Value) (*object.List, error) {
	class := v.Class()
	var iterVal object.Value = v
	if !(class.Native && class.Slots.Next != nil) {
		if class.Native && class.Slots.Iter != nil {
			it, err := class.Slots.Iter(v)
			if err != nil {
				return nil, err
			}
			iterVal = it
		} else {
			method, err := object.GetAttr(c, v, "__iter__")
			if err != nil {
				return nil, typeErr("%s is not iterable", class.Name)
			}
			it, err := c.Invoke(method, nil)
			if err != nil {
				return nil, err
			}
			iterVal = it
		}
	}
	var out []object.Value
	itClass := iterVal.Class()
	for {
		if itClass.Native && itClass.Slots.Next != nil {
			v, ok, err := itClass.Slots.Next(iterVal)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			out = append(out, v)
			continue
		}
		method, err := object.GetAttr(c, iterVal, "__next__")
		if err != nil {
			break
		}
		v, err := c.Invoke(method, nil)
		if err != nil {
			return nil, err
		}
		if v == object.StopIteration {
			break
		}
		out = append(out, v)
	}
	return object.NewList(out), nil
}
