package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// logger is the leveled, colorized logging hook wired into internal/engine,
// internal/registry, and internal/actor (all of which take a plain
// func(format string, args ...interface{}) rather than a concrete logger
// type). Verbosity is controlled by the repeatable -v flag: level 0 prints
// only warnings and errors, level 1 and above also prints debug lines
// (the paths --clean removes). Skip/run decisions are not logged, and
// fingerprint healing is logged by internal/state regardless of -v.
type logger struct {
	verbosity int
	warn      func(a ...interface{}) string
	debug     func(a ...interface{}) string
}

func newLogger(verbosity int) *logger {
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if !useColor {
		color.NoColor = true
	}
	return &logger{
		verbosity: verbosity,
		warn:      color.New(color.FgYellow).SprintFunc(),
		debug:     color.New(color.FgHiBlack).SprintFunc(),
	}
}

// Warnf is the hook passed to the engine/registry/actor layer: every
// message they log (execution errors, watcher setup failures, service
// stop/start transitions) is surfaced at this level regardless of -v.
func (l *logger) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, l.warn(fmt.Sprintf(format, args...)))
}

// Debugf is gated by -v; used by the CLI's own pre-engine steps (--clean).
func (l *logger) Debugf(format string, args ...interface{}) {
	if l.verbosity < 1 {
		return
	}
	fmt.Fprintln(os.Stderr, l.debug(fmt.Sprintf(format, args...)))
}

func (l *logger) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf(format, args...))
}
