// Package compiler lowers a parsed corvid AST directly into bytecode,
// merging the spec's separate AST-to-IR and IR-to-bytecode stages into one
// pass, grounded on the teacher's pkg/compiler (instruction slice + const
// pool + symbol table) but generalized from smog's single flat symbol
// table to per-scope compilation (module/function/class), since the
// target language has real lexical scoping the source's Smalltalk subset
// didn't need.
package compiler

import (
	"fmt"
	"math/big"

	"github.com/kristofer/corvid/pkg/ast"
	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/object"
)

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeFunction
	scopeClass
)

// loopCtx tracks the jump targets `break`/`continue` resolve to within the
// loop currently being compiled; popIterOnBreak is set for `for` loops,
// where a `break` must pop the iterator FOR_ITER would otherwise have
// popped itself on natural exhaustion.
type loopCtx struct {
	continueTarget int
	breakJumps     []int
	popIterOnBreak bool
}

// scope is one compilation unit: a module body, a function body, or a
// class body. Each gets its own instruction stream, constant pool, and
// name table, matching one *object.Code per spec §3.3.
type scope struct {
	kind     scopeKind
	instrs   []bytecode.Instruction
	consts   []object.Value
	names    []string
	nameIdx  map[string]int
	varnames []string
	varIdx   map[string]int
	globals  map[string]bool // names declared via `global` in this function
	locals   map[string]bool // names assigned anywhere in this function body
	loops    []*loopCtx
}

func newScope(kind scopeKind) *scope {
	return &scope{
		kind:    kind,
		nameIdx: make(map[string]int),
		varIdx:  make(map[string]int),
		globals: make(map[string]bool),
		locals:  make(map[string]bool),
	}
}

func (s *scope) emit(op bytecode.Opcode, operand int64) int {
	s.instrs = append(s.instrs, bytecode.Instruction{Op: op, Operand: operand})
	return len(s.instrs) - 1
}

func (s *scope) patch(idx int, operand int64) { s.instrs[idx].Operand = operand }

func (s *scope) here() int { return len(s.instrs) }

func (s *scope) addConst(v object.Value) int64 {
	s.consts = append(s.consts, v)
	return int64(len(s.consts) - 1)
}

func (s *scope) addName(name string) int64 {
	if idx, ok := s.nameIdx[name]; ok {
		return int64(idx)
	}
	idx := len(s.names)
	s.names = append(s.names, name)
	s.nameIdx[name] = idx
	return int64(idx)
}

func (s *scope) addVar(name string) int64 {
	if idx, ok := s.varIdx[name]; ok {
		return int64(idx)
	}
	idx := len(s.varnames)
	s.varnames = append(s.varnames, name)
	s.varIdx[name] = idx
	return int64(idx)
}

func (s *scope) code(name string, isGenerator bool) *object.Code {
	bc := bytecode.New(s.instrs)
	c := object.NewCode(name, bc, s.consts, s.names, s.varnames)
	c.IsGenerator = isGenerator
	switch s.kind {
	case scopeModule:
		c.Scope = "module"
	case scopeFunction:
		c.Scope = "function"
	case scopeClass:
		c.Scope = "class"
	}
	return c
}

// Compiler emits one *object.Code per scope; CompileModule is the entry
// point front ends call.
type Compiler struct {
	scope *scope
}

// CompileModule compiles a whole program as the top-level module scope,
// where STORE_NAME/LOAD_NAME write directly into frame.Locals == frame.Globals
// (per pkg/vm.RunModule).
func CompileModule(prog *ast.Program) (*object.Code, error) {
	c := &Compiler{scope: newScope(scopeModule)}
	for _, stmt := range prog.Statements {
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	c.scope.emit(bytecode.LOAD_CONST, c.scope.addConst(object.None))
	c.scope.emit(bytecode.RETURN_VALUE, 0)
	return c.scope.code("<module>", false), nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if err := c.compileExpr(s.X); err != nil {
			return err
		}
		c.scope.emit(bytecode.POP_TOP, 0)
		return nil

	case *ast.Assign:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		return c.compileStore(s.Target)

	case *ast.Return:
		if s.Value != nil {
			if err := c.compileExpr(s.Value); err != nil {
				return err
			}
		} else {
			c.scope.emit(bytecode.LOAD_CONST, c.scope.addConst(object.None))
		}
		c.scope.emit(bytecode.RETURN_VALUE, 0)
		return nil

	case *ast.Pass:
		c.scope.emit(bytecode.NOP, 0)
		return nil

	case *ast.Break:
		if len(c.scope.loops) == 0 {
			return fmt.Errorf("compiler: 'break' outside loop")
		}
		loop := c.scope.loops[len(c.scope.loops)-1]
		if loop.popIterOnBreak {
			c.scope.emit(bytecode.POP_TOP, 0)
		}
		idx := c.scope.emit(bytecode.JUMP_ABSOLUTE, 0)
		loop.breakJumps = append(loop.breakJumps, idx)
		return nil

	case *ast.Continue:
		if len(c.scope.loops) == 0 {
			return fmt.Errorf("compiler: 'continue' outside loop")
		}
		loop := c.scope.loops[len(c.scope.loops)-1]
		c.scope.emit(bytecode.JUMP_ABSOLUTE, int64(loop.continueTarget))
		return nil

	case *ast.Global:
		for _, n := range s.Names {
			c.scope.globals[n] = true
		}
		return nil

	case *ast.If:
		return c.compileIf(s)

	case *ast.While:
		return c.compileWhile(s)

	case *ast.For:
		return c.compileFor(s)

	case *ast.FunctionDef:
		return c.compileFunctionDef(s)

	case *ast.ClassDef:
		return c.compileClassDef(s)

	default:
		return fmt.Errorf("compiler: unknown statement %T", stmt)
	}
}

func (c *Compiler) compileIf(s *ast.If) error {
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	falseJump := c.scope.emit(bytecode.POP_JUMP_IF_FALSE, 0)
	for _, st := range s.Body {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	if s.Else == nil {
		c.scope.patch(falseJump, int64(c.scope.here()-(falseJump+1)))
		return nil
	}
	endJump := c.scope.emit(bytecode.JUMP_FORWARD, 0)
	c.scope.patch(falseJump, int64(c.scope.here()-(falseJump+1)))
	for _, st := range s.Else {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	c.scope.patch(endJump, int64(c.scope.here()-(endJump+1)))
	return nil
}

func (c *Compiler) compileWhile(s *ast.While) error {
	loopStart := c.scope.here()
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	falseJump := c.scope.emit(bytecode.POP_JUMP_IF_FALSE, 0)

	loop := &loopCtx{continueTarget: loopStart}
	c.scope.loops = append(c.scope.loops, loop)
	for _, st := range s.Body {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	c.scope.loops = c.scope.loops[:len(c.scope.loops)-1]

	c.scope.emit(bytecode.JUMP_ABSOLUTE, int64(loopStart))
	after := c.scope.here()
	c.scope.patch(falseJump, int64(after-(falseJump+1)))
	for _, idx := range loop.breakJumps {
		c.scope.patch(idx, int64(after))
	}
	return nil
}

func (c *Compiler) compileFor(s *ast.For) error {
	if err := c.compileExpr(s.Iter); err != nil {
		return err
	}
	c.scope.emit(bytecode.GET_ITER, 0)

	loopStart := c.scope.here()
	forIter := c.scope.emit(bytecode.FOR_ITER, 0)
	if err := c.compileStoreName(s.Var); err != nil {
		return err
	}

	loop := &loopCtx{continueTarget: loopStart, popIterOnBreak: true}
	c.scope.loops = append(c.scope.loops, loop)
	for _, st := range s.Body {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	c.scope.loops = c.scope.loops[:len(c.scope.loops)-1]

	c.scope.emit(bytecode.JUMP_ABSOLUTE, int64(loopStart))
	after := c.scope.here()
	c.scope.patch(forIter, int64(after-(forIter+1)))
	for _, idx := range loop.breakJumps {
		c.scope.patch(idx, int64(after))
	}
	return nil
}

// compileStore lowers an assignment target: a bare name, an attribute, or
// a subscript, each pushed onto the stack in the order their STORE_*
// opcode expects (see pkg/vm.runFrame's STORE_ATTR/STORE_SUBSCR cases).
func (c *Compiler) compileStore(target ast.Expr) error {
	switch t := target.(type) {
	case *ast.Name:
		return c.compileStoreName(t.Value)
	case *ast.Attribute:
		if err := c.compileExpr(t.X); err != nil {
			return err
		}
		c.scope.emit(bytecode.STORE_ATTR, c.scope.addName(t.Name))
		return nil
	case *ast.Subscript:
		if err := c.compileExpr(t.X); err != nil {
			return err
		}
		if err := c.compileExpr(t.Index); err != nil {
			return err
		}
		c.scope.emit(bytecode.STORE_SUBSCR, 0)
		return nil
	default:
		return fmt.Errorf("compiler: invalid assignment target %T", target)
	}
}

func (c *Compiler) compileStoreName(name string) error {
	s := c.scope
	switch s.kind {
	case scopeModule, scopeClass:
		s.emit(bytecode.STORE_NAME, s.addName(name))
	case scopeFunction:
		if s.globals[name] {
			s.emit(bytecode.STORE_GLOBAL, s.addName(name))
		} else {
			s.emit(bytecode.STORE_FAST, s.addVar(name))
		}
	}
	return nil
}

func (c *Compiler) compileLoadName(name string) {
	s := c.scope
	switch s.kind {
	case scopeModule, scopeClass:
		s.emit(bytecode.LOAD_NAME, s.addName(name))
	case scopeFunction:
		switch {
		case s.globals[name]:
			s.emit(bytecode.LOAD_GLOBAL, s.addName(name))
		case s.locals[name]:
			s.emit(bytecode.LOAD_FAST, s.addVar(name))
		default:
			s.emit(bytecode.LOAD_NAME, s.addName(name))
		}
	}
}

// compileFunctionDef pre-scans the body for assigned names (to decide the
// Fast-slot set per LEGB — see collectLocals), compiles the body in its own
// scope, then emits MAKE_FUNCTION and binds the result in the enclosing
// scope.
func (c *Compiler) compileFunctionDef(s *ast.FunctionDef) error {
	fnScope := newScope(scopeFunction)
	for _, p := range s.Params {
		fnScope.addVar(p)
		fnScope.locals[p] = true
	}
	collectLocals(s.Body, fnScope.locals, fnScope.globals)

	inner := &Compiler{scope: fnScope}
	for _, st := range s.Body {
		if err := inner.compileStmt(st); err != nil {
			return err
		}
	}
	fnScope.emit(bytecode.LOAD_CONST, fnScope.addConst(object.None))
	fnScope.emit(bytecode.RETURN_VALUE, 0)
	code := fnScope.code(s.Name, s.IsGenerator)

	outer := c.scope
	outer.emit(bytecode.LOAD_CONST, outer.addConst(object.NewStr(s.Name)))
	outer.emit(bytecode.LOAD_CONST, outer.addConst(code))
	outer.emit(bytecode.MAKE_FUNCTION, 0)
	return c.compileStoreName(s.Name)
}

// collectLocals walks a function body to find every name assigned within
// it (excluding those later declared `global`), so the compiler can decide
// upfront which reads become LOAD_FAST versus falling through to LOAD_NAME's
// LEGB search. Names declared `global` are removed from locals only after
// the whole walk, because `global x` may appear after x's first assignment
// in source order.
func collectLocals(body []ast.Stmt, locals, globals map[string]bool) {
	var walk func([]ast.Stmt)
	walk = func(stmts []ast.Stmt) {
		for _, st := range stmts {
			switch s := st.(type) {
			case *ast.Assign:
				if name, ok := s.Target.(*ast.Name); ok {
					locals[name.Value] = true
				}
			case *ast.Global:
				for _, n := range s.Names {
					globals[n] = true
				}
			case *ast.If:
				walk(s.Body)
				walk(s.Else)
			case *ast.While:
				walk(s.Body)
			case *ast.For:
				locals[s.Var] = true
				walk(s.Body)
			}
		}
	}
	walk(body)
	for g := range globals {
		delete(locals, g)
	}
}

// compileClassDef lowers `class Name(Base, ...): body` into a
// LOAD_BUILD_CLASS-driven CALL_FUNCTION, per §4.5 / pkg/vm.buildClass: the
// body compiles as a zero-argument function whose Locals become the new
// class's member table.
func (c *Compiler) compileClassDef(s *ast.ClassDef) error {
	bodyScope := newScope(scopeClass)
	inner := &Compiler{scope: bodyScope}
	for _, st := range s.Body {
		if err := inner.compileStmt(st); err != nil {
			return err
		}
	}
	bodyScope.emit(bytecode.LOAD_CONST, bodyScope.addConst(object.None))
	bodyScope.emit(bytecode.RETURN_VALUE, 0)
	code := bodyScope.code(s.Name, false)

	outer := c.scope
	outer.emit(bytecode.LOAD_BUILD_CLASS, 0)
	outer.emit(bytecode.LOAD_CONST, outer.addConst(object.NewStr(s.Name)))
	outer.emit(bytecode.LOAD_CONST, outer.addConst(code))
	outer.emit(bytecode.MAKE_FUNCTION, 0)
	outer.emit(bytecode.LOAD_CONST, outer.addConst(object.NewStr(s.Name)))
	for _, base := range s.Bases {
		c.compileLoadName(base)
	}
	outer.emit(bytecode.CALL_FUNCTION, int64(2+len(s.Bases)))
	return c.compileStoreName(s.Name)
}

func (c *Compiler) compileExpr(expr ast.Expr) error {
	s := c.scope
	switch e := expr.(type) {
	case *ast.IntLit:
		n, ok := new(big.Int).SetString(e.Value, 10)
		if !ok {
			return fmt.Errorf("compiler: invalid integer literal %q", e.Value)
		}
		s.emit(bytecode.LOAD_CONST, s.addConst(object.NewIntFromBig(n)))
		return nil

	case *ast.FloatLit:
		s.emit(bytecode.LOAD_CONST, s.addConst(object.NewFloat(e.Value)))
		return nil

	case *ast.StringLit:
		s.emit(bytecode.LOAD_CONST, s.addConst(object.StrIntern(e.Value)))
		return nil

	case *ast.BoolLit:
		s.emit(bytecode.LOAD_CONST, s.addConst(object.FromBool(e.Value)))
		return nil

	case *ast.NoneLit:
		s.emit(bytecode.LOAD_CONST, s.addConst(object.None))
		return nil

	case *ast.Name:
		c.compileLoadName(e.Value)
		return nil

	case *ast.ListLit:
		for _, el := range e.Elems {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		s.emit(bytecode.BUILD_LIST, int64(len(e.Elems)))
		return nil

	case *ast.DictLit:
		for i := range e.Keys {
			if err := c.compileExpr(e.Keys[i]); err != nil {
				return err
			}
			if err := c.compileExpr(e.Values[i]); err != nil {
				return err
			}
		}
		s.emit(bytecode.BUILD_MAP, int64(len(e.Keys)))
		return nil

	case *ast.Unary:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		switch e.Op {
		case "-":
			s.emit(bytecode.UNARY_NEGATIVE, 0)
		case "+":
			s.emit(bytecode.UNARY_POSITIVE, 0)
		case "~":
			s.emit(bytecode.UNARY_INVERT, 0)
		case "not":
			s.emit(bytecode.UNARY_NOT, 0)
		default:
			return fmt.Errorf("compiler: unknown unary operator %q", e.Op)
		}
		return nil

	case *ast.Binary:
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		op, ok := binaryOpcodes[e.Op]
		if !ok {
			return fmt.Errorf("compiler: unknown binary operator %q", e.Op)
		}
		s.emit(op, 0)
		return nil

	case *ast.Compare:
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		cmp, ok := compareOps[e.Op]
		if !ok {
			return fmt.Errorf("compiler: unknown comparison operator %q", e.Op)
		}
		s.emit(bytecode.COMPARE_OP, int64(cmp))
		return nil

	case *ast.BoolOp:
		return c.compileBoolOp(e)

	case *ast.Call:
		if err := c.compileExpr(e.Fn); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		s.emit(bytecode.CALL_FUNCTION, int64(len(e.Args)))
		return nil

	case *ast.Attribute:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		s.emit(bytecode.LOAD_ATTR, s.addName(e.Name))
		return nil

	case *ast.Subscript:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		if err := c.compileExpr(e.Index); err != nil {
			return err
		}
		s.emit(bytecode.BINARY_SUBSCR, 0)
		return nil

	case *ast.Slice:
		if e.Start != nil {
			if err := c.compileExpr(e.Start); err != nil {
				return err
			}
		} else {
			s.emit(bytecode.LOAD_CONST, s.addConst(object.None))
		}
		if e.Stop != nil {
			if err := c.compileExpr(e.Stop); err != nil {
				return err
			}
		} else {
			s.emit(bytecode.LOAD_CONST, s.addConst(object.None))
		}
		if e.Step != nil {
			if err := c.compileExpr(e.Step); err != nil {
				return err
			}
		} else {
			s.emit(bytecode.LOAD_CONST, s.addConst(object.None))
		}
		s.emit(bytecode.BUILD_SLICE, 0)
		return nil

	case *ast.Yield:
		if e.Value != nil {
			if err := c.compileExpr(e.Value); err != nil {
				return err
			}
		} else {
			s.emit(bytecode.LOAD_CONST, s.addConst(object.None))
		}
		s.emit(bytecode.YIELD_VALUE, 0)
		return nil

	default:
		return fmt.Errorf("compiler: unknown expression %T", expr)
	}
}

// compileBoolOp lowers `and`/`or` to their canonical bool result via jumps
// over POP_JUMP_IF_*, rather than Python's operand-preserving short circuit
// (which would need a DUP_TOP the instruction set doesn't have). Both
// operands' truthiness is still evaluated short-circuit — only the
// returned value is normalized to True/False.
func (c *Compiler) compileBoolOp(e *ast.BoolOp) error {
	s := c.scope
	shortCircuitOnTrue := e.Op == "or"

	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	var firstJump int
	if shortCircuitOnTrue {
		firstJump = s.emit(bytecode.POP_JUMP_IF_TRUE, 0)
	} else {
		firstJump = s.emit(bytecode.POP_JUMP_IF_FALSE, 0)
	}

	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	var secondJump int
	if shortCircuitOnTrue {
		secondJump = s.emit(bytecode.POP_JUMP_IF_TRUE, 0)
	} else {
		secondJump = s.emit(bytecode.POP_JUMP_IF_FALSE, 0)
	}

	s.emit(bytecode.LOAD_CONST, s.addConst(object.FromBool(!shortCircuitOnTrue)))
	endJump := s.emit(bytecode.JUMP_FORWARD, 0)

	shortCircuitTarget := s.here()
	s.patch(firstJump, int64(shortCircuitTarget-(firstJump+1)))
	s.patch(secondJump, int64(shortCircuitTarget-(secondJump+1)))
	s.emit(bytecode.LOAD_CONST, s.addConst(object.FromBool(shortCircuitOnTrue)))

	s.patch(endJump, int64(s.here()-(endJump+1)))
	return nil
}

var binaryOpcodes = map[string]bytecode.Opcode{
	"+": bytecode.BINARY_ADD, "-": bytecode.BINARY_SUB, "*": bytecode.BINARY_MUL,
	"/": bytecode.BINARY_TRUEDIV, "//": bytecode.BINARY_FLOORDIV, "%": bytecode.BINARY_MOD,
	"**": bytecode.BINARY_POW, "&": bytecode.BINARY_AND, "|": bytecode.BINARY_OR,
	"^": bytecode.BINARY_XOR, "<<": bytecode.BINARY_LSHIFT, ">>": bytecode.BINARY_RSHIFT,
}

var compareOps = map[string]bytecode.CompareOp{
	"==": bytecode.CmpEQ, "!=": bytecode.CmpNE,
	"<": bytecode.CmpLT, "<=": bytecode.CmpLE,
	">": bytecode.CmpGT, ">=": bytecode.CmpGE,
}
