package vm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	goIO "io"
)

const (
	TRAP_GETC  Word = 0x20 /* get character from keyboard, not echoed onto the terminal */
	TRAP_OUT   Word = 0x21 /* output a character */
	TRAP_PUTS  Word = 0x22 /* output a word string */
	TRAP_IN    Word = 0x23 /* get character from keyboard, echoed onto the terminal */
	TRAP_PUTSP Word = 0x24 /* output a byte string */
	TRAP_HALT  Word = 0x25 /* halt the program */
)

const inPrompt = "Enter a character: "

// console is the character device the trap routines talk to.
type console struct {
	keyboard     Keyboard
	stdoutWriter *bufio.Writer
}

func newConsole(keyboard Keyboard, w goIO.Writer) console {
	return console{keyboard: keyboard, stdoutWriter: bufio.NewWriter(w)}
}

// endOfInput is the key read once the input stream is exhausted.
const endOfInput Word = 0xFFFF

func (con *console) readKey(ctx context.Context) (Word, error) {
	if con.keyboard == nil {
		return endOfInput, nil
	}
	key, err := con.keyboard.ReadKey(ctx)
	if errors.Is(err, goIO.EOF) {
		return endOfInput, nil
	}
	if err != nil {
		return 0, err
	}
	return Word(key), nil
}

// trap saves the return address in R7 and runs the service routine for the
// instruction's vector. Unknown vectors do nothing.
func (cpu *cpu) trap(ctx context.Context, in instruction) error {
	cpu.reg.set(R7, cpu.reg.pc)

	var err error
	switch in.trapVector() {
	case TRAP_GETC:
		err = cpu.trapGetc(ctx)
	case TRAP_OUT:
		err = cpu.trapOut()
	case TRAP_PUTS:
		err = cpu.trapPuts()
	case TRAP_IN:
		err = cpu.trapIn(ctx)
	case TRAP_PUTSP:
		err = cpu.trapPutsp()
	case TRAP_HALT:
		err = cpu.trapHalt()
	}
	return err
}

func (cpu *cpu) trapGetc(ctx context.Context) error {
	c, err := cpu.console.readKey(ctx)
	if err != nil {
		return consoleError("GETC", err)
	}
	cpu.reg.set(R0, c)
	cpu.reg.updateFlags(R0)
	return nil
}

func (cpu *cpu) trapOut() error {
	out := cpu.console.stdoutWriter
	out.WriteByte(byte(cpu.reg.get(R0)))
	return consoleError("OUT", out.Flush())
}

// trapPuts reads memory directly, so a string never polls the memory mapped
// keyboard. The same holds for trapPutsp.
func (cpu *cpu) trapPuts() error {
	out := cpu.console.stdoutWriter
	addr := cpu.reg.get(R0)
	for n := 0; n < MemorySize; n++ {
		c := cpu.mem.ram[addr]
		if c == 0 {
			break
		}
		out.WriteByte(byte(c))
		addr++
	}
	return consoleError("PUTS", out.Flush())
}

func (cpu *cpu) trapIn(ctx context.Context) error {
	out := cpu.console.stdoutWriter
	out.WriteString(inPrompt)
	if err := out.Flush(); err != nil {
		return consoleError("IN", err)
	}

	c, err := cpu.console.readKey(ctx)
	if err != nil {
		return consoleError("IN", err)
	}
	if c != endOfInput {
		out.WriteByte(byte(c))
		if err := out.Flush(); err != nil {
			return consoleError("IN", err)
		}
	}

	cpu.reg.set(R0, c)
	cpu.reg.updateFlags(R0)
	return nil
}

func (cpu *cpu) trapPutsp() error {
	out := cpu.console.stdoutWriter
	addr := cpu.reg.get(R0)
	for n := 0; n < MemorySize; n++ {
		w := cpu.mem.ram[addr]
		if w == 0 {
			break
		}
		out.WriteByte(byte(w))
		if hi := byte(w >> 8); hi != 0 {
			out.WriteByte(hi)
		}
		addr++
	}
	return consoleError("PUTSP", out.Flush())
}

func (cpu *cpu) trapHalt() error {
	out := cpu.console.stdoutWriter
	out.WriteString("HALT\n")
	cpu.stop()
	return consoleError("HALT", out.Flush())
}

// consoleError tags a console failure with the trap that hit it. Context
// cancellation is passed through untouched.
func consoleError(trap string, err error) error {
	switch err {
	case nil, context.Canceled, context.DeadlineExceeded:
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrConsole, trap, err)
}
