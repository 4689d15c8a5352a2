package vm

const MemorySize = 1 << 16

const MemoryMappedRegistersStart = 0xFE00

// memory mapped register addresses
const (
	KBSR = MemoryMappedRegistersStart          /* keyboard status register */
	KBDR = MemoryMappedRegistersStart + 0x0002 /* keyboard data register */
)

const kbsrReady = 0x8000

// KeyPoller reports a pending key without blocking.
type KeyPoller interface {
	Poll() (key byte, ok bool)
}

type memory struct {
	ram      [MemorySize]Word
	keyboard KeyPoller
}

func newMemory(keyboard KeyPoller) *memory {
	return &memory{keyboard: keyboard}
}

// read returns the word at addr. Reading KBSR polls the keyboard first and
// refreshes both KBSR and KBDR.
func (mem *memory) read(addr Word) Word {
	if addr == KBSR {
		if key, ok := mem.poll(); ok {
			mem.ram[KBSR] = kbsrReady
			mem.ram[KBDR] = Word(key)
		} else {
			mem.ram[KBSR] = 0
		}
	}
	return mem.ram[addr]
}

func (mem *memory) write(addr, value Word) {
	mem.ram[addr] = value
}

func (mem *memory) poll() (byte, bool) {
	if mem.keyboard == nil {
		return 0, false
	}
	return mem.keyboard.Poll()
}
