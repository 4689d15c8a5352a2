package vm

import (
	"fmt"
	"strings"
)

// UserSpaceStart is the address the program counter holds after a reset.
const UserSpaceStart = 0x3000

// registers is the register file: R0-R7, the program counter and the
// condition code.
type registers struct {
	gpr  [RegisterCount]Word
	pc   Word
	cond Flag
}

func newRegisters() registers {
	return registers{pc: UserSpaceStart, cond: FlagZro}
}

func (r *registers) get(i Word) Word {
	return r.gpr[i&0b111]
}

func (r *registers) set(i, v Word) {
	r.gpr[i&0b111] = v
}

// updateFlags derives the condition from the current value of register i.
func (r *registers) updateFlags(i Word) {
	r.cond = ConditionOf(r.get(i))
}

func (r *registers) String() string {
	var sb strings.Builder
	for i, v := range r.gpr {
		fmt.Fprintf(&sb, "R%d: 0x%04x\n", i, v)
	}
	fmt.Fprintf(&sb, "PC: 0x%04x\n", r.pc)
	fmt.Fprintf(&sb, "COND: N: %d, Z: %d, P: %d",
		(r.cond>>2)&0b1, (r.cond>>1)&0b1, r.cond&0b1)
	return sb.String()
}
