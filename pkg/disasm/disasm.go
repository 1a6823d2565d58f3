// Package disasm renders a compiled *object.Code as human-readable text,
// grounded on the teacher's disassembleFile/formatConstant pair in
// cmd/smog/main.go, generalized from smog's flat instruction list to
// corvid's operand-kind-aware encoding (§4.6) and extended to recurse into
// nested function/class code objects the way a real bytecode dump would.
package disasm

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"

	"github.com/kristofer/corvid/pkg/bytecode"
	"github.com/kristofer/corvid/pkg/object"
)

// Disassemble formats code and every code object reachable through its
// constant pool, depth-first, matching the nesting a reader would expect
// from seeing a class's methods printed under the class.
func Disassemble(code *object.Code) string {
	var b strings.Builder
	disassemble(&b, code, 0)
	return b.String()
}

func disassemble(b *strings.Builder, code *object.Code, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%sCode<%s> (%s scope, %d locals)\n", indent, code.Name, code.Scope, code.NumLocals)
	for i, instr := range code.Bytecode.Instructions {
		fmt.Fprintf(b, "%s%4d %-20s %s\n", indent, i, instr.Op, operandText(code, instr))
	}
	for _, c := range code.Consts {
		if nested, ok := c.(*object.Code); ok {
			disassemble(b, nested, depth+1)
		}
	}
}

func operandText(code *object.Code, instr bytecode.Instruction) string {
	switch instr.Op.Kind() {
	case bytecode.OperandNone:
		return ""
	case bytecode.OperandCompare:
		return bytecode.CompareOp(instr.Operand).String()
	case bytecode.OperandOffset:
		return fmt.Sprintf("%+d", instr.Operand)
	case bytecode.OperandIndex:
		return indexText(code, instr)
	default:
		return fmt.Sprintf("%d", instr.Operand)
	}
}

// indexText resolves a LOAD_CONST/LOAD_NAME/LOAD_FAST-style index operand
// against the relevant table, so a disassembly reads `LOAD_CONST 0 (10)`
// rather than a bare index a reader would have to cross-reference by hand.
func indexText(code *object.Code, instr bytecode.Instruction) string {
	idx := int(instr.Operand)
	switch instr.Op {
	case bytecode.LOAD_CONST:
		if idx < len(code.Consts) {
			return fmt.Sprintf("%d (%s)", idx, formatConstant(code.Consts[idx]))
		}
	case bytecode.LOAD_NAME, bytecode.LOAD_GLOBAL, bytecode.STORE_NAME, bytecode.STORE_GLOBAL,
		bytecode.LOAD_ATTR, bytecode.STORE_ATTR:
		if idx < len(code.Names) {
			return fmt.Sprintf("%d (%s)", idx, code.Names[idx])
		}
	case bytecode.LOAD_FAST, bytecode.STORE_FAST:
		if idx < len(code.Varnames) {
			return fmt.Sprintf("%d (%s)", idx, code.Varnames[idx])
		}
	}
	return fmt.Sprintf("%d", idx)
}

// formatConstant mirrors the teacher's formatConstant, extended with a
// kr/pretty fallback for constant kinds without a case of their own
// (lists, bytes) so
// `-show-bc` output never prints a bare Go %v pointer dump.
func formatConstant(v object.Value) string {
	switch t := v.(type) {
	case *object.Int:
		return t.V.String()
	case *object.Float:
		return fmt.Sprintf("%g", t.Val)
	case *object.Str:
		return fmt.Sprintf("%q", t.Val)
	case *object.Bool:
		if t.Val {
			return "True"
		}
		return "False"
	case *object.NoneType:
		return "None"
	case *object.Code:
		return fmt.Sprintf("<code %s>", t.Name)
	default:
		return pretty.Sprint(v)
	}
}

// SizeReport renders a human-friendly summary of a .crb file's size,
// per SPEC_FULL's note that the CLI reports compiled-artifact size via
// dustin/go-humanize rather than a bare byte count.
func SizeReport(path string, n int) string {
	return fmt.Sprintf("%s: %s", path, humanize.Bytes(uint64(n)))
}
