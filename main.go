package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/aryanA101a/lc3vm/internal/translate"
	"github.com/aryanA101a/lc3vm/vm"
)

const (
	exitOK          = 0
	exitLoadFailed  = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbose bool
	var dump bool
	var cpuprofile string

	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.BoolVar(&verbose, "v", false, "Trace every executed instruction")
	flags.BoolVar(&dump, "dump", false, "Log the registers when the program stops")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile to `dir`")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), translate.From("lc3 [image-file1] ..."))
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		return exitUsage
	}
	if flags.NArg() < 1 {
		flags.Usage()
		return exitUsage
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if cpuprofile != "" {
		defer profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(cpuprofile),
			profile.NoShutdownHook,
			profile.Quiet,
		).Stop()
	}

	machine := vm.NewVM(
		vm.WithKeyboard(vm.NewStreamKeyboard(os.Stdin)),
		vm.WithOutput(os.Stdout),
		vm.WithTerminal(vm.NewTerminal(os.Stdin, logger)),
		vm.WithLogger(logger),
	)

	for _, path := range flags.Args() {
		if err := machine.LoadImageFile(path); err != nil {
			logger.WithError(err).Debug("load")
			fmt.Fprintln(os.Stderr, translate.From("Failed to load image: %v", path))
			return exitLoadFailed
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := machine.Run(ctx)
	if dump {
		logger.Warn("registers\n" + machine.Dump())
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		logger.WithError(err).Error("execution stopped")
		return exitLoadFailed
	}
}
