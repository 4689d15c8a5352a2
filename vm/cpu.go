package vm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// cancelCheckInterval is how many instructions run between checks of the
// run context.
const cancelCheckInterval = 1 << 10

type cpu struct {
	running bool
	halted  bool
	count   uint64
	reg     registers
	mem     *memory
	console console
	log     logrus.FieldLogger
	trace   bool
}

func newCpu(mem *memory, con console, log logrus.FieldLogger, trace bool) *cpu {
	return &cpu{
		reg:     newRegisters(),
		mem:     mem,
		console: con,
		log:     log,
		trace:   trace,
	}
}

// start runs the fetch-decode-execute loop until HALT, a console error or
// cancellation of ctx.
func (cpu *cpu) start(ctx context.Context) error {
	cpu.running = true
	defer func() { cpu.running = false }()

	for cpu.running {
		if cpu.count%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := cpu.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (cpu *cpu) stop() {
	cpu.running = false
	cpu.halted = true
}

// step fetches the instruction at PC, advances PC and executes it.
func (cpu *cpu) step(ctx context.Context) error {
	pc := cpu.reg.pc
	in := instruction(cpu.mem.read(pc))
	cpu.reg.pc++
	cpu.count++

	if cpu.trace {
		cpu.log.WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("0x%04x", pc),
			"word": fmt.Sprintf("0x%04x", Word(in)),
		}).Debug(in.String())
	}

	return cpu.decodeAndExecuteInstruction(ctx, in)
}

func (cpu *cpu) decodeAndExecuteInstruction(ctx context.Context, in instruction) error {
	switch in.opcode() {
	case OP_ADD:
		cpu.add(in)
	case OP_AND:
		cpu.and(in)
	case OP_NOT:
		cpu.not(in)
	case OP_BR:
		cpu.br(in)
	case OP_JMP:
		cpu.jmp(in)
	case OP_JSR:
		cpu.jsr(in)
	case OP_LD:
		cpu.ld(in)
	case OP_LDI:
		cpu.ldi(in)
	case OP_LDR:
		cpu.ldr(in)
	case OP_LEA:
		cpu.lea(in)
	case OP_ST:
		cpu.st(in)
	case OP_STI:
		cpu.sti(in)
	case OP_STR:
		cpu.str(in)
	case OP_TRAP:
		return cpu.trap(ctx, in)
	case OP_RTI, OP_RES:
		// unused on this machine
	}
	return nil
}

// operand returns SR2 or the sign extended imm5 field.
func (cpu *cpu) operand(in instruction) Word {
	if in.immFlag() {
		return in.imm5()
	}
	return cpu.reg.get(in.sr2())
}

func (cpu *cpu) add(in instruction) {
	cpu.reg.set(in.dr(), cpu.reg.get(in.sr1())+cpu.operand(in))
	cpu.reg.updateFlags(in.dr())
}

func (cpu *cpu) and(in instruction) {
	cpu.reg.set(in.dr(), cpu.reg.get(in.sr1())&cpu.operand(in))
	cpu.reg.updateFlags(in.dr())
}

func (cpu *cpu) not(in instruction) {
	cpu.reg.set(in.dr(), ^cpu.reg.get(in.sr1()))
	cpu.reg.updateFlags(in.dr())
}

// br branches when the active condition is one the instruction asks for.
func (cpu *cpu) br(in instruction) {
	nzp := in.nzp()
	cond := cpu.reg.cond
	if (nzp&FlagNeg != 0 && cond == FlagNeg) ||
		(nzp&FlagZro != 0 && cond == FlagZro) ||
		(nzp&FlagPos != 0 && cond == FlagPos) {
		cpu.reg.pc += in.offset9()
	}
}

// jmp also implements RET, which is JMP R7.
func (cpu *cpu) jmp(in instruction) {
	cpu.reg.pc = cpu.reg.get(in.base())
}

// jsr links through R7 before reading the base register, so JSRR R7
// continues at the return address.
func (cpu *cpu) jsr(in instruction) {
	cpu.reg.set(R7, cpu.reg.pc)
	if in.longFlag() {
		cpu.reg.pc += in.offset11()
	} else {
		cpu.reg.pc = cpu.reg.get(in.base())
	}
}

func (cpu *cpu) ld(in instruction) {
	cpu.reg.set(in.dr(), cpu.mem.read(cpu.reg.pc+in.offset9()))
	cpu.reg.updateFlags(in.dr())
}

func (cpu *cpu) ldi(in instruction) {
	cpu.reg.set(in.dr(), cpu.mem.read(cpu.mem.read(cpu.reg.pc+in.offset9())))
	cpu.reg.updateFlags(in.dr())
}

func (cpu *cpu) ldr(in instruction) {
	cpu.reg.set(in.dr(), cpu.mem.read(cpu.reg.get(in.base())+in.offset6()))
	cpu.reg.updateFlags(in.dr())
}

func (cpu *cpu) lea(in instruction) {
	cpu.reg.set(in.dr(), cpu.reg.pc+in.offset9())
	cpu.reg.updateFlags(in.dr())
}

func (cpu *cpu) st(in instruction) {
	cpu.mem.write(cpu.reg.pc+in.offset9(), cpu.reg.get(in.dr()))
}

func (cpu *cpu) sti(in instruction) {
	cpu.mem.write(cpu.mem.read(cpu.reg.pc+in.offset9()), cpu.reg.get(in.dr()))
}

func (cpu *cpu) str(in instruction) {
	cpu.mem.write(cpu.reg.get(in.base())+in.offset6(), cpu.reg.get(in.dr()))
}
