package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignExtend(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		x        Word
		bitCount uint
		expected Word
	}){
		{"imm5_min", 0b10000, 5, 0xFFF0},
		{"imm5_minus3", 0b11101, 5, 0xFFFD},
		{"imm5_max", 0b01111, 5, 0x000F},
		{"off6_minus1", 0b111111, 6, 0xFFFF},
		{"off9_minus1", 0b111111111, 9, 0xFFFF},
		{"off9_one", 0b000000001, 9, 0x0001},
		{"off9_min", 0b100000000, 9, 0xFF00},
		{"off11_minus2", 0b11111111110, 11, 0xFFFE},
		{"off11_zero", 0, 11, 0},
		{"high_bits_ignored", 0xFF01, 9, 0x0101 | 0xFF00},
		{"full_width", 0x8000, 16, 0x8000},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, SignExtend(entry.x, entry.bitCount), entry.name)
	}
}

func TestConditionOf(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(FlagZro, ConditionOf(0))
	assert.Equal(FlagPos, ConditionOf(1))
	assert.Equal(FlagPos, ConditionOf(0x7FFF))
	assert.Equal(FlagNeg, ConditionOf(0x8000))
	assert.Equal(FlagNeg, ConditionOf(0xFFFF))

	for v := 0; v < MemorySize; v++ {
		cond := ConditionOf(Word(v))
		active := 0
		for _, fl := range []Flag{FlagPos, FlagZro, FlagNeg} {
			if cond == fl {
				active++
			}
		}
		if active != 1 {
			t.Fatalf("ConditionOf(0x%04x) = %v", v, cond)
		}
	}
}

func TestFlagString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("N", FlagNeg.String())
	assert.Equal("Z", FlagZro.String())
	assert.Equal("P", FlagPos.String())
	assert.Equal("Flag(011)", Flag(3).String())
}
