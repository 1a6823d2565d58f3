// Package vm implements corvid's frame machinery and bytecode interpreter
// loop (spec §3.4/§4.4-§4.5): a single-threaded stack machine that
// dispatches opcodes by delegating every value operation through
// pkg/object's method-resolution engine.
package vm

import (
	"github.com/pkg/errors"

	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/eventbus"
	"github.com/kristofer/corvid/pkg/eventloop"
	"github.com/kristofer/corvid/pkg/object"
)

// VM is the interpreter: a frame stack implicit in Go's own call stack
// (runFrame recurses for nested calls), plus the process-wide event bus
// and event loop every corvid program shares.
type VM struct {
	Bus  *eventbus.Bus
	Loop *eventloop.Loop
	// Builtins is consulted by LOAD_NAME/LOAD_GLOBAL after locals/globals
	// miss, per §4.4's LEGB search.
	Builtins map[string]object.Value
}

func New() *VM {
	v := &VM{
		Bus:      eventbus.New(),
		Builtins: make(map[string]object.Value),
	}
	v.Loop = eventloop.New(func(err error) {
		v.Bus.Publish(eventbus.LogError, err.Error())
	})
	return v
}

// Then and SettlePromise satisfy object.PromiseScheduler, letting
// Promise's then/catch/resolve/reject native methods (pkg/object/promise.go)
// schedule reactions on this VM's event loop without pkg/object importing
// pkg/eventloop.

func (vm *VM) Then(p *object.Promise, onFulfilled, onRejected object.Value) *object.Promise {
	return vm.Loop.Then(p, onFulfilled, onRejected, vm.Invoke)
}

func (vm *VM) SettlePromise(p *object.Promise, state object.PromiseState, value object.Value) {
	vm.Loop.Settle(p, state, value, vm.Invoke)
}

// RunModule executes a freshly compiled or deserialized module code object
// to completion, drains the event loop, and returns the value the code
// returns. A module compiled by pkg/compiler ends with an implicit
// `return None`, so for such a module that value is always None.
func (vm *VM) RunModule(code *object.Code) (object.Value, error) {
	return vm.RunModuleIn(code, make(map[string]object.Value))
}

// RunModuleIn executes code against a caller-supplied globals map instead
// of a fresh one, so a REPL can keep the same module namespace alive
// across one call per input line (the teacher's persistent-compiler
// symbol table, generalized to corvid's persistent-globals-map analogue).
func (vm *VM) RunModuleIn(code *object.Code, globals map[string]object.Value) (object.Value, error) {
	frame := object.NewFrame(code, globals, nil)
	frame.Locals = globals // module scope: STORE_NAME writes directly to globals
	result, _, err := vm.runFrame(frame)
	if err != nil {
		return nil, err
	}
	vm.Loop.Run()
	return result, nil
}

// Invoke implements object.Caller: it is how pkg/object's dispatch.go
// (GetAttr, BinaryDispatch, Dict hashing) calls back into user code
// without an import cycle.
func (vm *VM) Invoke(callable object.Value, args []object.Value) (object.Value, error) {
	switch fn := callable.(type) {
	case *object.NativeFunction:
		return fn.Fn(vm, args)
	case *object.Function:
		if fn.Code.IsGenerator {
			return object.NewGenerator(fn.Name, freshGeneratorFrame(fn, args)), nil
		}
		frame := object.NewFrame(fn.Code, fn.Globals, nil)
		bindArgs(frame, fn, args)
		result, yielded, err := vm.runFrame(frame)
		if err != nil {
			return nil, err
		}
		if yielded {
			return nil, newError(InternalError, frame, "non-generator function yielded")
		}
		return result, nil
	case *object.BoundMethod:
		full := append([]object.Value{fn.Owner}, args...)
		return vm.Invoke(fn.Underlying, full)
	case *object.Class:
		return vm.construct(fn, args)
	default:
		return nil, errors.Errorf("TypeError: %s is not callable", callable.Class().Name)
	}
}

// freshGeneratorFrame builds the paused frame a generator wraps, per §4.5:
// "If the code's generator flag is set, the VM returns a generator value
// wrapping the fresh frame without evaluating."
func freshGeneratorFrame(fn *object.Function, args []object.Value) *object.Frame {
	frame := object.NewFrame(fn.Code, fn.Globals, nil)
	bindArgs(frame, fn, args)
	return frame
}

func bindArgs(frame *object.Frame, fn *object.Function, args []object.Value) {
	for i := 0; i < len(frame.Fast); i++ {
		if i < len(args) {
			frame.Fast[i] = args[i]
			continue
		}
		if d := i - (len(frame.Fast) - len(fn.Defaults)); d >= 0 && d < len(fn.Defaults) {
			frame.Fast[i] = fn.Defaults[d]
			continue
		}
		frame.Fast[i] = object.None
	}
}

// construct implements §4.5's "type used as a callable": native classes
// build their own payload type; user classes allocate a bare instance and
// invoke __init__ through attribute lookup.
func (vm *VM) construct(class *object.Class, args []object.Value) (object.Value, error) {
	if class.Native {
		if initFn, ok := class.Member("__new__"); ok {
			return vm.Invoke(initFn, args)
		}
		return nil, errors.Errorf("TypeError: %s is not directly constructible", class.Name)
	}
	inst := object.NewInstance(class)
	if _, ok := findInit(class); ok {
		method, err := object.GetAttr(vm, inst, "__init__")
		if err == nil {
			if _, err := vm.Invoke(method, args); err != nil {
				return nil, err
			}
		}
	}
	return inst, nil
}

func findInit(class *object.Class) (object.Value, bool) {
	for _, k := range class.MRO {
		if v, ok := k.Member("__init__"); ok {
			return v, true
		}
	}
	return nil, false
}

// runFrame executes frame.Code from frame.PC until it yields, returns, or
// errors. yielded reports whether execution stopped at a YIELD_VALUE
// (leaving the frame resumable) rather than a RETURN_VALUE.
func (vm *VM) runFrame(frame *object.Frame) (result object.Value, yielded bool, err error) {
	instrs := frame.Code.Bytecode.Instructions
	for frame.PC < len(instrs) {
		instr := instrs[frame.PC]
		frame.PC++

		switch instr.Op {
		case bytecode.LOAD_CONST:
			frame.Push(frame.Code.Consts[instr.Operand])

		case bytecode.LOAD_NAME:
			name := frame.Code.Names[instr.Operand]
			v, ok := lookupLEGB(frame, vm.Builtins, name)
			if !ok {
				return nil, false, newError(NameError, frame, "name %q is not defined", name)
			}
			frame.Push(v)

		case bytecode.LOAD_GLOBAL:
			name := frame.Code.Names[instr.Operand]
			if v, ok := frame.Globals[name]; ok {
				frame.Push(v)
				break
			}
			if v, ok := vm.Builtins[name]; ok {
				frame.Push(v)
				break
			}
			return nil, false, newError(NameError, frame, "global name %q is not defined", name)

		case bytecode.LOAD_FAST:
			frame.Push(frame.Fast[instr.Operand])

		case bytecode.LOAD_ATTR:
			name := frame.Code.Names[instr.Operand]
			obj := frame.Pop()
			v, err := object.GetAttr(vm, obj, name)
			if err != nil {
				if object.IsAttrNotFound(err) {
					return nil, false, newError(AttributeError, frame, "%s object has no attribute %q", obj.Class().Name, name)
				}
				return nil, false, err
			}
			frame.Push(v)

		case bytecode.STORE_NAME:
			name := frame.Code.Names[instr.Operand]
			frame.Locals[name] = frame.Pop()

		case bytecode.STORE_FAST:
			frame.Fast[instr.Operand] = frame.Pop()

		case bytecode.STORE_GLOBAL:
			name := frame.Code.Names[instr.Operand]
			frame.Globals[name] = frame.Pop()

		case bytecode.STORE_ATTR:
			name := frame.Code.Names[instr.Operand]
			obj := frame.Pop()
			val := frame.Pop()
			if err := object.SetAttr(vm, obj, name, val); err != nil {
				return nil, false, err
			}

		case bytecode.BINARY_SUBSCR:
			key := frame.Pop()
			obj := frame.Pop()
			v, err := vm.getItem(obj, key)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			frame.Push(v)

		case bytecode.STORE_SUBSCR:
			key := frame.Pop()
			obj := frame.Pop()
			val := frame.Pop()
			if err := vm.setItem(obj, key, val); err != nil {
				return nil, false, err
			}

		case bytecode.POP_TOP:
			frame.Pop()

		case bytecode.NOP:

		case bytecode.UNARY_POSITIVE, bytecode.UNARY_NEGATIVE, bytecode.UNARY_INVERT:
			v := frame.Pop()
			res, err := vm.unaryOp(instr.Op, v)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			frame.Push(res)

		case bytecode.UNARY_NOT:
			v := frame.Pop()
			t, err := vm.truthy(v)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			frame.Push(object.FromBool(!t))

		case bytecode.BINARY_ADD, bytecode.BINARY_SUB, bytecode.BINARY_MUL, bytecode.BINARY_MATMUL,
			bytecode.BINARY_TRUEDIV, bytecode.BINARY_FLOORDIV, bytecode.BINARY_MOD, bytecode.BINARY_POW,
			bytecode.BINARY_AND, bytecode.BINARY_OR, bytecode.BINARY_XOR,
			bytecode.BINARY_LSHIFT, bytecode.BINARY_RSHIFT:
			rhs := frame.Pop()
			lhs := frame.Pop()
			res, err := vm.binaryOp(instr.Op, lhs, rhs)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			frame.Push(res)

		case bytecode.COMPARE_OP:
			rhs := frame.Pop()
			lhs := frame.Pop()
			res, err := vm.compare(bytecode.CompareOp(instr.Operand), lhs, rhs)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			frame.Push(res)

		case bytecode.BUILD_LIST:
			n := int(instr.Operand)
			elems := make([]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = frame.Pop()
			}
			frame.Push(object.NewList(elems))

		case bytecode.BUILD_MAP:
			n := int(instr.Operand)
			d := object.NewDict()
			pairs := make([][2]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				v := frame.Pop()
				k := frame.Pop()
				pairs[i] = [2]object.Value{k, v}
			}
			for _, p := range pairs {
				if err := d.Set(vm, p[0], p[1]); err != nil {
					return nil, false, err
				}
			}
			frame.Push(d)

		case bytecode.BUILD_SLICE:
			step := frame.Pop()
			stop := frame.Pop()
			start := frame.Pop()
			frame.Push(object.NewSlice(noneToNil(start), noneToNil(stop), noneToNil(step)))

		case bytecode.POP_JUMP_IF_FALSE:
			v := frame.Pop()
			t, err := vm.truthy(v)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			if !t {
				frame.PC += int(instr.Operand)
			}

		case bytecode.POP_JUMP_IF_TRUE:
			v := frame.Pop()
			t, err := vm.truthy(v)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			if t {
				frame.PC += int(instr.Operand)
			}

		case bytecode.JUMP_ABSOLUTE:
			frame.PC = int(instr.Operand)

		case bytecode.JUMP_FORWARD:
			frame.PC += int(instr.Operand)

		case bytecode.GET_ITER:
			x := frame.Pop()
			it, err := vm.iter(x)
			if err != nil {
				return nil, false, wrapType(frame, err)
			}
			frame.Push(it)

		case bytecode.FOR_ITER:
			it := frame.Top()
			v, ok, err := vm.next(it)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				frame.Pop()
				frame.PC += int(instr.Operand)
				break
			}
			frame.Push(v)

		case bytecode.MAKE_FUNCTION:
			code := frame.Pop().(*object.Code)
			name := frame.Pop().(*object.Str)
			frame.Push(object.NewFunction(name.Val, code, frame.Globals))

		case bytecode.CALL_FUNCTION:
			n := int(instr.Operand)
			args := make([]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = frame.Pop()
			}
			callable := frame.Pop()
			res, err := vm.Invoke(callable, args)
			if err != nil {
				return nil, false, err
			}
			frame.Push(res)

		case bytecode.LOAD_BUILD_CLASS:
			frame.Push(object.NewNativeFunction("__build_class__", vm.buildClass))

		case bytecode.RETURN_VALUE:
			return frame.Pop(), false, nil

		case bytecode.YIELD_VALUE:
			return frame.Pop(), true, nil

		default:
			return nil, false, newError(InternalError, frame, "unknown opcode %v", instr.Op)
		}
	}
	return object.None, false, nil
}

func noneToNil(v object.Value) object.Value {
	if _, ok := v.(*object.NoneType); ok {
		return nil
	}
	return v
}

func lookupLEGB(frame *object.Frame, builtins map[string]object.Value, name string) (object.Value, bool) {
	if v, ok := frame.Locals[name]; ok {
		return v, true
	}
	if v, ok := frame.Globals[name]; ok {
		return v, true
	}
	if v, ok := builtins[name]; ok {
		return v, true
	}
	return nil, false
}

func wrapType(frame *object.Frame, err error) error {
	if isRuntimeError(err) {
		return err
	}
	return newError(TypeError, frame, "%s", err.Error())
}
