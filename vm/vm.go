package vm

import (
	"context"
	"errors"
	goIO "io"
	"os"

	"github.com/sirupsen/logrus"
)

// VM is an LC-3 machine: memory, register file and console.
type VM struct {
	memory   *memory
	cpu      *cpu
	keyboard Keyboard
	terminal RawModer
	output   goIO.Writer
	log      *logrus.Logger
}

type Option func(*VM)

// WithKeyboard sets the console input. Without it GETC and IN read 0xFFFF,
// as at end of input, and the keyboard status register never reports ready.
func WithKeyboard(kb Keyboard) Option {
	return func(vm *VM) { vm.keyboard = kb }
}

// WithOutput sets the console output. The default is os.Stdout.
func WithOutput(w goIO.Writer) Option {
	return func(vm *VM) { vm.output = w }
}

// WithTerminal puts the terminal in raw mode for the duration of Run.
func WithTerminal(t RawModer) Option {
	return func(vm *VM) { vm.terminal = t }
}

// WithLogger sets the logger. Instructions are traced when it is at debug
// level.
func WithLogger(log *logrus.Logger) Option {
	return func(vm *VM) { vm.log = log }
}

func NewVM(opts ...Option) *VM {
	vm := &VM{
		output: os.Stdout,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(vm)
	}

	var poller KeyPoller
	if vm.keyboard != nil {
		poller = vm.keyboard
	}
	vm.memory = newMemory(poller)
	vm.cpu = newCpu(vm.memory, newConsole(vm.keyboard, vm.output), vm.log, vm.log.IsLevelEnabled(logrus.DebugLevel))
	return vm
}

// LoadImage copies an image from r into memory. Later images overwrite
// earlier ones where they overlap.
func (vm *VM) LoadImage(r goIO.Reader) error {
	origin, n, err := vm.memory.loadImage(r)
	if err != nil {
		return err
	}
	vm.logLoad("", origin, n)
	return nil
}

// LoadImageFile loads the image stored at path. Errors are of type ErrImage.
func (vm *VM) LoadImageFile(path string) error {
	origin, n, err := vm.memory.loadImageFile(path)
	if err != nil {
		return err
	}
	vm.logLoad(path, origin, n)
	return nil
}

func (vm *VM) logLoad(path string, origin Word, n int) {
	fields := logrus.Fields{
		"origin": origin,
		"words":  n,
	}
	if path != "" {
		fields["path"] = path
	}
	vm.log.WithFields(fields).Infof("Size: %0.2f KB", float32(2*n+2)/1024)
}

// Run executes from the current PC until HALT, which returns nil, or until
// ctx is done, which returns ctx.Err(). The terminal, if any, is in raw mode
// only while Run is executing.
func (vm *VM) Run(ctx context.Context) (err error) {
	if vm.cpu.halted {
		return ErrHalted
	}

	if vm.terminal != nil {
		if err = vm.terminal.EnableRawMode(); err != nil {
			return err
		}
		defer func() {
			if rerr := vm.terminal.Restore(); err == nil {
				err = rerr
			}
		}()
	}

	err = vm.cpu.start(ctx)
	if errors.Is(err, context.Canceled) {
		vm.output.Write([]byte("\n"))
	}
	vm.log.WithFields(logrus.Fields{
		"pc":           vm.cpu.reg.pc,
		"instructions": vm.cpu.count,
	}).Debug("stopped")
	return err
}

// Step executes a single instruction.
func (vm *VM) Step(ctx context.Context) error {
	if vm.cpu.halted {
		return ErrHalted
	}
	return vm.cpu.step(ctx)
}

// Halted reports whether the machine executed HALT.
func (vm *VM) Halted() bool {
	return vm.cpu.halted
}

// Reg returns general purpose register i (0-7).
func (vm *VM) Reg(i int) Word {
	return vm.cpu.reg.get(Word(i))
}

func (vm *VM) SetReg(i int, v Word) {
	vm.cpu.reg.set(Word(i), v)
}

func (vm *VM) PC() Word {
	return vm.cpu.reg.pc
}

func (vm *VM) SetPC(pc Word) {
	vm.cpu.reg.pc = pc
}

func (vm *VM) Cond() Flag {
	return vm.cpu.reg.cond
}

// Peek returns the word stored at addr without triggering memory mapped
// device side effects.
func (vm *VM) Peek(addr Word) Word {
	return vm.memory.ram[addr]
}

func (vm *VM) Poke(addr, v Word) {
	vm.memory.write(addr, v)
}

// Dump renders the register file.
func (vm *VM) Dump() string {
	return vm.cpu.reg.String()
}
