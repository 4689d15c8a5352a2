package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (op Opcode) word() Word {
	return Word(op) << 12
}

type testMachine struct {
	*VM
	out *bytes.Buffer
}

// newTestVM loads program at UserSpaceStart.
func newTestVM(kb Keyboard, program ...Word) testMachine {
	out := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	opts := []Option{WithOutput(out), WithLogger(logger)}
	if kb != nil {
		opts = append(opts, WithKeyboard(kb))
	}
	vm := NewVM(opts...)
	for n, code := range program {
		vm.Poke(UserSpaceStart+Word(n), code)
	}
	return testMachine{VM: vm, out: out}
}

func TestReset(t *testing.T) {
	assert := assert.New(t)

	vm := newTestVM(nil)
	assert.Equal(Word(UserSpaceStart), vm.PC())
	assert.Equal(FlagZro, vm.Cond())
	for i := 0; i < RegisterCount; i++ {
		assert.Equal(Word(0), vm.Reg(i))
	}
}

func TestOpcodes(t *testing.T) {
	type state struct {
		reg map[int]Word
		mem map[Word]Word
	}

	table := [](struct {
		name   string
		code   Word
		before state
		after  state
		pc     Word
		cond   Flag
	}){
		{
			name:   "add_imm",
			code:   0x107D, // ADD R0, R1, #-3
			before: state{reg: map[int]Word{R1: 5}},
			after:  state{reg: map[int]Word{R0: 2, R1: 5}},
			pc:     0x3001, cond: FlagPos,
		},
		{
			name:   "add_reg_negative",
			code:   0x1642, // ADD R3, R1, R2
			before: state{reg: map[int]Word{R1: 1, R2: 0xFFFD}},
			after:  state{reg: map[int]Word{R3: 0xFFFE}},
			pc:     0x3001, cond: FlagNeg,
		},
		{
			name:   "add_wraps_to_zero",
			code:   0x1261, // ADD R1, R1, #1
			before: state{reg: map[int]Word{R1: 0xFFFF}},
			after:  state{reg: map[int]Word{R1: 0}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "and_imm",
			code:   0x5020, // AND R0, R0, #0
			before: state{reg: map[int]Word{R0: 0x1234}},
			after:  state{reg: map[int]Word{R0: 0}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "and_reg",
			code:   0x5442, // AND R2, R1, R2
			before: state{reg: map[int]Word{R1: 0xF0F0, R2: 0x8FF0}},
			after:  state{reg: map[int]Word{R2: 0x80F0}},
			pc:     0x3001, cond: FlagNeg,
		},
		{
			name:   "not",
			code:   0x907F, // NOT R0, R1
			before: state{reg: map[int]Word{R1: 0xFF00}},
			after:  state{reg: map[int]Word{R0: 0x00FF}},
			pc:     0x3001, cond: FlagPos,
		},
		{
			name:  "br_z_taken",
			code:  0x0402, // BRz #2
			after: state{},
			pc:    0x3003, cond: FlagZro,
		},
		{
			name:  "br_np_not_taken",
			code:  0x0A02, // BRnp #2
			after: state{},
			pc:    0x3001, cond: FlagZro,
		},
		{
			name:  "br_nzp_backwards",
			code:  0x0FFF, // BRnzp #-1
			after: state{},
			pc:    0x3000, cond: FlagZro,
		},
		{
			name:  "br_never",
			code:  0x0002, // BR with no condition bits
			after: state{},
			pc:    0x3001, cond: FlagZro,
		},
		{
			name:   "jmp",
			code:   0xC080, // JMP R2
			before: state{reg: map[int]Word{R2: 0x4000}},
			after:  state{reg: map[int]Word{R2: 0x4000}},
			pc:     0x4000, cond: FlagZro,
		},
		{
			name:   "ret",
			code:   0xC1C0, // RET
			before: state{reg: map[int]Word{R7: 0x3100}},
			pc:     0x3100, cond: FlagZro,
		},
		{
			name:  "jsr",
			code:  0x4FFF, // JSR #-1
			after: state{reg: map[int]Word{R7: 0x3001}},
			pc:    0x3000, cond: FlagZro,
		},
		{
			name:   "jsrr",
			code:   0x40C0, // JSRR R3
			before: state{reg: map[int]Word{R3: 0x5000}},
			after:  state{reg: map[int]Word{R3: 0x5000, R7: 0x3001}},
			pc:     0x5000, cond: FlagZro,
		},
		{
			name:   "jsrr_r7",
			code:   0x41C0, // JSRR R7
			before: state{reg: map[int]Word{R7: 0x5000}},
			after:  state{reg: map[int]Word{R7: 0x3001}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "ld",
			code:   0x2401, // LD R2, #1
			before: state{mem: map[Word]Word{0x3002: 0x8000}},
			after:  state{reg: map[int]Word{R2: 0x8000}},
			pc:     0x3001, cond: FlagNeg,
		},
		{
			name:   "ldi",
			code:   0xA002, // LDI R0, #2
			before: state{mem: map[Word]Word{0x3003: 0x4000, 0x4000: 0x1234}},
			after:  state{reg: map[int]Word{R0: 0x1234}},
			pc:     0x3001, cond: FlagPos,
		},
		{
			name:   "ldr",
			code:   0x62BF, // LDR R1, R2, #-1
			before: state{reg: map[int]Word{R1: 7, R2: 0x4001}},
			after:  state{reg: map[int]Word{R1: 0, R2: 0x4001}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:  "lea",
			code:  0xE7FF, // LEA R3, #-1
			after: state{reg: map[int]Word{R3: 0x3000}},
			pc:    0x3001, cond: FlagPos,
		},
		{
			name:   "st",
			code:   0x3805, // ST R4, #5
			before: state{reg: map[int]Word{R4: 0xBEEF}},
			after:  state{mem: map[Word]Word{0x3006: 0xBEEF}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "sti",
			code:   0xB801, // STI R4, #1
			before: state{reg: map[int]Word{R4: 0xBEEF}, mem: map[Word]Word{0x3002: 0x5000}},
			after:  state{mem: map[Word]Word{0x5000: 0xBEEF, 0x3002: 0x5000}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "str",
			code:   0x7943, // STR R4, R5, #3
			before: state{reg: map[int]Word{R4: 0x0042, R5: 0x6000}},
			after:  state{mem: map[Word]Word{0x6003: 0x0042}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "rti",
			code:   0x8000,
			before: state{reg: map[int]Word{R1: 9}},
			after:  state{reg: map[int]Word{R1: 9}},
			pc:     0x3001, cond: FlagZro,
		},
		{
			name:   "res",
			code:   0xD123,
			before: state{reg: map[int]Word{R1: 9}},
			after:  state{reg: map[int]Word{R1: 9}},
			pc:     0x3001, cond: FlagZro,
		},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			vm := newTestVM(nil, entry.code)
			for i, v := range entry.before.reg {
				vm.SetReg(i, v)
			}
			for addr, v := range entry.before.mem {
				vm.Poke(addr, v)
			}

			require.NoError(t, vm.Step(context.Background()))

			for i, v := range entry.after.reg {
				assert.Equal(v, vm.Reg(i), "R%d", i)
			}
			for addr, v := range entry.after.mem {
				assert.Equal(v, vm.Peek(addr), "mem[0x%04x]", addr)
			}
			assert.Equal(entry.pc, vm.PC(), "pc")
			assert.Equal(entry.cond, vm.Cond(), "cond")
		})
	}
}

func TestBranchConditions(t *testing.T) {
	assert := assert.New(t)

	// Each condition against every combination of requested bits.
	for _, cond := range []Flag{FlagNeg, FlagZro, FlagPos} {
		for nzp := Word(0); nzp < 8; nzp++ {
			vm := newTestVM(nil, OP_BR.word()|nzp<<9|0x010)
			vm.cpu.reg.cond = cond

			assert.NoError(vm.Step(context.Background()))

			taken := Flag(nzp)&cond != 0
			if taken {
				assert.Equal(Word(0x3011), vm.PC(), "cond=%v nzp=%03b", cond, nzp)
			} else {
				assert.Equal(Word(0x3001), vm.PC(), "cond=%v nzp=%03b", cond, nzp)
			}
		}
	}
}

func TestFlagsFollowDestination(t *testing.T) {
	assert := assert.New(t)

	// ADD R2, R2, #-1 counting down from 2: P, Z, N.
	vm := newTestVM(nil, 0x14BF, 0x14BF, 0x14BF)
	vm.SetReg(R2, 2)

	for _, expected := range []Flag{FlagPos, FlagZro, FlagNeg} {
		assert.NoError(vm.Step(context.Background()))
		assert.Equal(expected, vm.Cond())
	}
	assert.Equal(Word(0xFFFF), vm.Reg(R2))
}

func TestUnknownOpcodeContinues(t *testing.T) {
	assert := assert.New(t)

	vm := newTestVM(nil,
		0xD000, // reserved
		0x1262, // ADD R1, R1, #2
	)
	vm.SetReg(R1, 3)

	assert.NoError(vm.Step(context.Background()))
	assert.Equal(Word(0x3001), vm.PC())
	assert.Equal(Word(3), vm.Reg(R1))
	assert.Equal(FlagZro, vm.Cond())

	assert.NoError(vm.Step(context.Background()))
	assert.Equal(Word(5), vm.Reg(R1))
	assert.Equal(FlagPos, vm.Cond())
}

func TestLoopProgram(t *testing.T) {
	assert := assert.New(t)

	// Sum 5+4+3+2+1 into R0.
	vm := newTestVM(nil,
		0x5020, // AND R0, R0, #0
		0x5260, // AND R1, R1, #0
		0x1265, // ADD R1, R1, #5
		0x1001, // LOOP ADD R0, R0, R1
		0x127F, // ADD R1, R1, #-1
		0x03FD, // BRp LOOP
		0xF025, // HALT
	)

	assert.NoError(vm.Run(context.Background()))
	assert.Equal(Word(15), vm.Reg(R0))
	assert.Equal(Word(0), vm.Reg(R1))
	assert.True(vm.Halted())
	assert.Equal("HALT\n", vm.out.String())
}

func TestRunCancelled(t *testing.T) {
	assert := assert.New(t)

	vm := newTestVM(nil, 0x0FFF) // BRnzp #-1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := vm.Run(ctx)
	assert.ErrorIs(err, context.Canceled)
	assert.False(vm.Halted())
	assert.Equal("\n", vm.out.String())
}
