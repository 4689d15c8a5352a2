package vm

import (
	"context"
	goIO "io"
	"os"
	"sync"

	"github.com/pkg/term/termios"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Keyboard is the console input device. Poll backs the memory mapped
// keyboard registers and must not block; ReadKey backs GETC and IN and blocks
// until a key arrives or ctx is done.
type Keyboard interface {
	KeyPoller
	ReadKey(ctx context.Context) (byte, error)
}

// StreamKeyboard turns a byte stream into a Keyboard. A single goroutine
// reads the stream one byte at a time into a one key buffer.
type StreamKeyboard struct {
	keyBuffer chan byte
	err       error
}

func NewStreamKeyboard(r goIO.Reader) *StreamKeyboard {
	kb := &StreamKeyboard{keyBuffer: make(chan byte, 1)}
	go kb.pollKeyboard(r)
	return kb
}

func (kb *StreamKeyboard) pollKeyboard(r goIO.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			kb.keyBuffer <- buf[0]
		}
		if err != nil {
			kb.err = err
			close(kb.keyBuffer)
			return
		}
	}
}

func (kb *StreamKeyboard) Poll() (byte, bool) {
	select {
	case key, ok := <-kb.keyBuffer:
		return key, ok
	default:
		return 0, false
	}
}

func (kb *StreamKeyboard) ReadKey(ctx context.Context) (byte, error) {
	select {
	case key, ok := <-kb.keyBuffer:
		if !ok {
			return 0, kb.err
		}
		return key, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// RawModer switches a terminal into and out of raw mode.
type RawModer interface {
	EnableRawMode() error
	Restore() error
}

// Terminal controls the input mode of a terminal device. Enabling raw mode
// on something that is not a terminal is a no-op, as is restoring a terminal
// that is not in raw mode.
type Terminal struct {
	mu                     sync.Mutex
	fd                     uintptr
	raw                    bool
	originalTerminalConfig unix.Termios
	log                    logrus.FieldLogger
}

func NewTerminal(f *os.File, log logrus.FieldLogger) *Terminal {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Terminal{fd: f.Fd(), log: log}
}

// EnableRawMode turns off line buffering and echo.
func (t *Terminal) EnableRawMode() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.raw || !term.IsTerminal(int(t.fd)) {
		return nil
	}

	t.log.Debug("enabling raw mode...")
	if err := termios.Tcgetattr(t.fd, &t.originalTerminalConfig); err != nil {
		return err
	}
	newTermios := t.originalTerminalConfig
	newTermios.Lflag &^= unix.ICANON | unix.ECHO
	if err := termios.Tcsetattr(t.fd, termios.TCSANOW, &newTermios); err != nil {
		return err
	}
	t.raw = true
	return nil
}

// Restore puts back the mode saved by EnableRawMode.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.raw {
		return nil
	}

	t.log.Debug("disabling raw mode...")
	if err := termios.Tcsetattr(t.fd, termios.TCSANOW, &t.originalTerminalConfig); err != nil {
		return err
	}
	t.raw = false
	return nil
}
