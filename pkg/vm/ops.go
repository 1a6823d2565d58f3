package vm

import (
	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/object"
)

func (vm *VM) binaryOp(op bytecode.Opcode, lhs, rhs object.Value) (object.Value, error) {
	slot := func(s *object.OpSlots) object.BinaryFunc { return nil }
	dunder := ""
	switch op {
	case bytecode.BINARY_ADD:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Add }, "__add__"
	case bytecode.BINARY_SUB:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Sub }, "__sub__"
	case bytecode.BINARY_MUL:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Mul }, "__mul__"
	case bytecode.BINARY_MATMUL:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.MatMul }, "__matmul__"
	case bytecode.BINARY_TRUEDIV:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.TrueDiv }, "__truediv__"
	case bytecode.BINARY_FLOORDIV:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.FloorDiv }, "__floordiv__"
	case bytecode.BINARY_MOD:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Mod }, "__mod__"
	case bytecode.BINARY_POW:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Pow }, "__pow__"
	case bytecode.BINARY_AND:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.And }, "__and__"
	case bytecode.BINARY_OR:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Or }, "__or__"
	case bytecode.BINARY_XOR:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.Xor }, "__xor__"
	case bytecode.BINARY_LSHIFT:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.LShift }, "__lshift__"
	case bytecode.BINARY_RSHIFT:
		slot, dunder = func(s *object.OpSlots) object.BinaryFunc { return s.RShift }, "__rshift__"
	default:
		return nil, errors.Errorf("internal: %v is not a binary opcode", op)
	}
	return object.BinaryDispatch(vm, lhs, rhs, slot, dunder)
}

func (vm *VM) unaryOp(op bytecode.Opcode, v object.Value) (object.Value, error) {
	class := v.Class()
	var slot object.BinaryUnary
	var dunder string
	switch op {
	case bytecode.UNARY_POSITIVE:
		slot, dunder = class.Slots.Pos, "__pos__"
	case bytecode.UNARY_NEGATIVE:
		slot, dunder = class.Slots.Neg, "__neg__"
	case bytecode.UNARY_INVERT:
		slot, dunder = class.Slots.Invert, "__invert__"
	}
	if class.Native {
		if slot == nil {
			return nil, errors.Errorf("unsupported operand type for unary op: %s", class.Name)
		}
		return slot(v)
	}
	method, err := object.GetAttr(vm, v, dunder)
	if err != nil {
		return nil, errors.Errorf("%s has no attribute %s", class.Name, dunder)
	}
	return vm.Invoke(method, nil)
}

func (vm *VM) compare(op bytecode.CompareOp, lhs, rhs object.Value) (object.Value, error) {
	switch op {
	case bytecode.CmpEQ:
		return object.Eq(vm, lhs, rhs)
	case bytecode.CmpNE:
		return object.Ne(vm, lhs, rhs)
	case bytecode.CmpLT:
		return object.Lt(vm, lhs, rhs)
	case bytecode.CmpLE:
		return object.Le(vm, lhs, rhs)
	case bytecode.CmpGT:
		return object.Gt(vm, lhs, rhs)
	case bytecode.CmpGE:
		return object.Ge(vm, lhs, rhs)
	case bytecode.CmpIS:
		return object.FromBool(lhs == rhs), nil
	case bytecode.CmpISNOT:
		return object.FromBool(lhs != rhs), nil
	case bytecode.CmpIN:
		return object.BinaryDispatch(vm, rhs, lhs, func(s *object.OpSlots) object.BinaryFunc { return s.Contains }, "__contains__")
	case bytecode.CmpNOTIN:
		v, err := object.BinaryDispatch(vm, rhs, lhs, func(s *object.OpSlots) object.BinaryFunc { return s.Contains }, "__contains__")
		if err != nil {
			return nil, err
		}
		return object.FromBool(!object.Truthy(v)), nil
	default:
		return nil, errors.Errorf("internal: unknown compare tag %d", op)
	}
}

// truthy implements the boolean unary op, dispatching through a class's
// native Boolean slot or __bool__ dunder before falling back to
// object.Truthy's structural defaults.
func (vm *VM) truthy(v object.Value) (bool, error) {
	class := v.Class()
	if class.Native {
		if class.Slots.Boolean != nil {
			return class.Slots.Boolean(v)
		}
		return object.Truthy(v), nil
	}
	if _, ok := classHasDunder(class, "__bool__"); ok {
		method, err := object.GetAttr(vm, v, "__bool__")
		if err != nil {
			return true, nil
		}
		res, err := vm.Invoke(method, nil)
		if err != nil {
			return false, err
		}
		return object.Truthy(res), nil
	}
	return true, nil
}

func classHasDunder(class *object.Class, name string) (object.Value, bool) {
	for _, k := range class.MRO {
		if v, ok := k.Member(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (vm *VM) iter(v object.Value) (object.Value, error) {
	class := v.Class()
	if class.Native {
		if class.Slots.Iter != nil {
			return class.Slots.Iter(v)
		}
		return nil, errors.Errorf("TypeError: %s is not iterable", class.Name)
	}
	method, err := object.GetAttr(vm, v, "__iter__")
	if err != nil {
		return nil, errors.Errorf("TypeError: %s is not iterable", class.Name)
	}
	return vm.Invoke(method, nil)
}

// next implements FOR_ITER's advance step, handling both native iterator
// kinds (§4.1's Next slot) and generators (resumed via send(None)).
func (vm *VM) next(it object.Value) (object.Value, bool, error) {
	if gen, ok := it.(*object.Generator); ok {
		v, done, err := vm.ResumeGenerator(gen, object.None)
		if err != nil {
			return nil, false, err
		}
		return v, !done, nil
	}
	class := it.Class()
	if class.Native && class.Slots.Next != nil {
		return class.Slots.Next(it)
	}
	method, err := object.GetAttr(vm, it, "__next__")
	if err != nil {
		return nil, false, errors.Errorf("TypeError: %s is not an iterator", class.Name)
	}
	v, err := vm.Invoke(method, nil)
	if err != nil {
		return nil, false, err
	}
	if v == object.StopIteration {
		return nil, false, nil
	}
	return v, true, nil
}

func (vm *VM) getItem(obj, key object.Value) (object.Value, error) {
	if d, ok := obj.(*object.Dict); ok {
		v, found, err := d.Get(vm, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.Errorf("KeyError: %v", key)
		}
		return v, nil
	}
	class := obj.Class()
	if class.Native {
		if class.Slots.GetItem != nil {
			return class.Slots.GetItem(obj, key)
		}
		return nil, errors.Errorf("TypeError: %s is not subscriptable", class.Name)
	}
	method, err := object.GetAttr(vm, obj, "__getitem__")
	if err != nil {
		return nil, errors.Errorf("TypeError: %s is not subscriptable", class.Name)
	}
	return vm.Invoke(method, []object.Value{key})
}

func (vm *VM) setItem(obj, key, val object.Value) error {
	if d, ok := obj.(*object.Dict); ok {
		return d.Set(vm, key, val)
	}
	class := obj.Class()
	if class.Native {
		if class.Slots.SetItem != nil {
			return class.Slots.SetItem(obj, key, val)
		}
		return errors.Errorf("TypeError: %s does not support item assignment", class.Name)
	}
	method, err := object.GetAttr(vm, obj, "__setitem__")
	if err != nil {
		return errors.Errorf("TypeError: %s does not support item assignment", class.Name)
	}
	_, err = vm.Invoke(method, []object.Value{key, val})
	return err
}

// buildClass implements LOAD_BUILD_CLASS's pushed builtin: it is called as
// __build_class__(body_fn, name, *bases). body_fn is the zero-argument
// function compiled from the class statement's suite; its frame's Locals
// table becomes the new class's attribute namespace.
func (vm *VM) buildClass(c object.Caller, args []object.Value) (object.Value, error) {
	if len(args) < 2 {
		return nil, errors.New("TypeError: __build_class__ requires a body and a name")
	}
	bodyFn, ok := args[0].(*object.Function)
	if !ok {
		return nil, errors.New("TypeError: __build_class__ body must be a function")
	}
	name, ok := args[1].(*object.Str)
	if !ok {
		return nil, errors.New("TypeError: __build_class__ name must be a str")
	}
	parents := make([]*object.Class, 0, len(args)-2)
	for _, a := range args[2:] {
		base, ok := a.(*object.Class)
		if !ok {
			return nil, errors.New("TypeError: class bases must be classes")
		}
		parents = append(parents, base)
	}
	if len(parents) == 0 {
		parents = []*object.Class{object.ObjectClass}
	}

	frame := object.NewFrame(bodyFn.Code, bodyFn.Globals, nil)
	if _, _, err := vm.runFrame(frame); err != nil {
		return nil, err
	}

	class := object.NewClass(name.Val, parents, false)
	for k, v := range frame.Locals {
		class.DefineMember(k, v)
	}
	if err := class.Register(); err != nil {
		return nil, errors.Wrap(err, "class registration")
	}
	return class, nil
}
