package bytecode

import "encoding/binary"

// EncodeInstruction writes one instruction per §4.6: a 1-byte opcode
// followed by operand bytes sized by the opcode's OperandKind.
func EncodeInstruction(w []byte, instr Instruction) []byte {
	w = append(w, byte(instr.Op))
	switch instr.Op.Kind() {
	case OperandIndex, OperandOffset:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(instr.Operand))
		w = append(w, buf[:]...)
	case OperandCompare:
		w = append(w, byte(instr.Operand))
	}
	return w
}

// Encode concatenates every instruction's encoding, per §4.6.
func (b *Bytecode) Encode() []byte {
	var out []byte
	for _, instr := range b.Instructions {
		out = EncodeInstruction(out, instr)
	}
	return out
}

// Decode parses a raw instruction stream back into a Bytecode.
func Decode(data []byte) (*Bytecode, error) {
	var instrs []Instruction
	i := 0
	for i < len(data) {
		op := Opcode(data[i])
		i++
		switch op.Kind() {
		case OperandIndex, OperandOffset:
			if i+8 > len(data) {
				return nil, errShortRead
			}
			v := binary.LittleEndian.Uint64(data[i : i+8])
			i += 8
			operand := int64(v)
			instrs = append(instrs, Instruction{Op: op, Operand: operand})
		case OperandCompare:
			if i+1 > len(data) {
				return nil, errShortRead
			}
			instrs = append(instrs, Instruction{Op: op, Operand: int64(data[i])})
			i++
		default:
			instrs = append(instrs, Instruction{Op: op})
		}
	}
	return &Bytecode{Instructions: instrs}, nil
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errShortRead = decodeError("bytecode: truncated instruction stream")
