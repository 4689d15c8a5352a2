package vm

import (
	"fmt"
	"strings"
)

// Opcode selects the operation of an instruction; it is the top four bits of
// the instruction word.
type Opcode Word

// opcodes
const (
	OP_BR Opcode = iota
	OP_ADD
	OP_LD
	OP_ST
	OP_JSR
	OP_AND
	OP_LDR
	OP_STR
	OP_RTI
	OP_NOT
	OP_LDI
	OP_STI
	OP_JMP
	OP_RES
	OP_LEA
	OP_TRAP
)

var opcodeNames = [...]string{
	OP_BR:   "BR",
	OP_ADD:  "ADD",
	OP_LD:   "LD",
	OP_ST:   "ST",
	OP_JSR:  "JSR",
	OP_AND:  "AND",
	OP_LDR:  "LDR",
	OP_STR:  "STR",
	OP_RTI:  "RTI",
	OP_NOT:  "NOT",
	OP_LDI:  "LDI",
	OP_STI:  "STI",
	OP_JMP:  "JMP",
	OP_RES:  "RES",
	OP_LEA:  "LEA",
	OP_TRAP: "TRAP",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", Word(op))
}

// instruction is a fetched word with accessors for its operand fields. Which
// fields are meaningful depends on the opcode.
type instruction Word

func (in instruction) opcode() Opcode { return Opcode(in >> 12) }

// dr is the destination register, also the source register of stores.
func (in instruction) dr() Word { return Word(in>>9) & 0b111 }
func (in instruction) sr1() Word { return Word(in>>6) & 0b111 }
func (in instruction) sr2() Word { return Word(in) & 0b111 }

// base is the base register of JMP, JSRR, LDR and STR.
func (in instruction) base() Word { return in.sr1() }

func (in instruction) immFlag() bool { return (in>>5)&0b1 == 1 }
func (in instruction) longFlag() bool { return (in>>11)&0b1 == 1 }

func (in instruction) nzp() Flag { return Flag(in>>9) & 0b111 }

func (in instruction) imm5() Word { return SignExtend(Word(in)&0x1F, 5) }
func (in instruction) offset6() Word { return SignExtend(Word(in)&0x3F, 6) }
func (in instruction) offset9() Word { return SignExtend(Word(in)&0x1FF, 9) }
func (in instruction) offset11() Word { return SignExtend(Word(in)&0x7FF, 11) }
func (in instruction) trapVector() Word { return Word(in) & 0xFF }

func (in instruction) String() string {
	op := in.opcode()
	switch op {
	case OP_ADD, OP_AND:
		if in.immFlag() {
			return fmt.Sprintf("%v R%d, R%d, #%d", op, in.dr(), in.sr1(), int16(in.imm5()))
		}
		return fmt.Sprintf("%v R%d, R%d, R%d", op, in.dr(), in.sr1(), in.sr2())
	case OP_NOT:
		return fmt.Sprintf("NOT R%d, R%d", in.dr(), in.sr1())
	case OP_BR:
		var cc strings.Builder
		for _, fl := range []Flag{FlagNeg, FlagZro, FlagPos} {
			if in.nzp()&fl != 0 {
				cc.WriteString(strings.ToLower(fl.String()))
			}
		}
		return fmt.Sprintf("BR%s #%d", cc.String(), int16(in.offset9()))
	case OP_JMP:
		if in.base() == R7 {
			return "RET"
		}
		return fmt.Sprintf("JMP R%d", in.base())
	case OP_JSR:
		if in.longFlag() {
			return fmt.Sprintf("JSR #%d", int16(in.offset11()))
		}
		return fmt.Sprintf("JSRR R%d", in.base())
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		return fmt.Sprintf("%v R%d, #%d", op, in.dr(), int16(in.offset9()))
	case OP_LDR, OP_STR:
		return fmt.Sprintf("%v R%d, R%d, #%d", op, in.dr(), in.base(), int16(in.offset6()))
	case OP_TRAP:
		return fmt.Sprintf("TRAP x%02X", in.trapVector())
	}
	return op.String()
}
