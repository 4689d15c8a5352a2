package vm

import (
	"errors"

	"github.com/aryanA101a/lc3vm/internal/translate"
)

var f = translate.From

var (
	ErrImageTooShort = errors.New(f("image too short"))
	ErrConsole       = errors.New(f("console"))
	ErrHalted        = errors.New(f("machine halted"))
)

// ErrImage reports an image file that could not be loaded.
type ErrImage struct {
	Path string
	Err  error
}

func (err ErrImage) Error() string {
	return f("failed to load image %v: %v", err.Path, err.Err)
}

func (err ErrImage) Unwrap() error {
	return err.Err
}
