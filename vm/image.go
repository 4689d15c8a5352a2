package vm

import (
	"bufio"
	"encoding/binary"
	"errors"
	goIO "io"
	"os"
)

// loadImage copies an image into memory. An image is a big-endian origin
// word followed by the words to place at origin, origin+1, and so on. Words
// past the end of the address space and a trailing odd byte are ignored.
func (mem *memory) loadImage(r goIO.Reader) (origin Word, n int, err error) {
	br := bufio.NewReader(r)

	if err = binary.Read(br, binary.BigEndian, &origin); err != nil {
		if errors.Is(err, goIO.EOF) || errors.Is(err, goIO.ErrUnexpectedEOF) {
			err = ErrImageTooShort
		}
		return
	}

	var buf [2]byte
	maxRead := MemorySize - int(origin)
	for n < maxRead {
		if _, err = goIO.ReadFull(br, buf[:]); err != nil {
			if errors.Is(err, goIO.EOF) || errors.Is(err, goIO.ErrUnexpectedEOF) {
				err = nil
			}
			return
		}
		mem.ram[int(origin)+n] = Word(binary.BigEndian.Uint16(buf[:]))
		n++
	}
	return
}

func (mem *memory) loadImageFile(path string) (Word, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, ErrImage{Path: path, Err: err}
	}
	defer file.Close()

	origin, n, err := mem.loadImage(file)
	if err != nil {
		return origin, n, ErrImage{Path: path, Err: err}
	}
	return origin, n, nil
}
