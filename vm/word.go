package vm

import "fmt"

// Word is the machine's 16-bit unit of storage: a register value, a memory
// cell or an instruction.
type Word uint16

// Flag is a condition code. Exactly one of FlagPos, FlagZro and FlagNeg is
// active at a time.
type Flag Word

// flags
const (
	FlagPos Flag = 1 << 0
	FlagZro Flag = 1 << 1
	FlagNeg Flag = 1 << 2
)

// general purpose registers
const (
	R0 = 0b000
	R1 = 0b001
	R2 = 0b010
	R3 = 0b011
	R4 = 0b100
	R5 = 0b101
	R6 = 0b110
	R7 = 0b111

	RegisterCount = 8
)

func (f Flag) String() string {
	switch f {
	case FlagPos:
		return "P"
	case FlagZro:
		return "Z"
	case FlagNeg:
		return "N"
	}
	return fmt.Sprintf("Flag(%03b)", Word(f))
}

// SignExtend widens the low bitCount bits of x to a 16-bit two's complement
// value. bitCount must be in 1..16.
func SignExtend(x Word, bitCount uint) Word {
	x &= Word(0xFFFF >> (16 - bitCount))
	if (x>>(bitCount-1))&0b1 != 0 {
		x |= Word(0xFFFF << bitCount)
	}
	return x
}

// ConditionOf returns the condition a register holding v reports.
func ConditionOf(v Word) Flag {
	switch {
	case v == 0:
		return FlagZro
	case v>>15 != 0:
		return FlagNeg
	default:
		return FlagPos
	}
}
