// Package pr is a thin wrapper for unified output in an interactive CLI
// session. It wires up readline with a cancelable stdin, redirects
// stdout/stderr through its buffers, and exposes small print helpers for
// normal and diagnostic output.
//
// Used by cmd/alertengine's local operator console (spec.md places the real
// subscriber/bot command surface out of scope for the core engine, so the
// console here stands in for manual subscriber admin and live-mode message
// injection during local runs and demos).
package pr

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kr/pretty"
)

var (
	rl     *readline.Instance
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	mu     sync.Mutex

	cancelableIn interface{ Close() error }
)

// Init sets up readline and redirects the package's output streams to its
// stdout/stderr. Uses a cancelable stdin so shutdown can interrupt a pending
// read. Not meant to be called twice.
func Init() error {
	cs := readline.NewCancelableStdin(os.Stdin)
	newRl, err := readline.NewEx(&readline.Config{Stdin: cs})
	if err != nil {
		_ = cs.Close()
		return err
	}
	rl = newRl

	mu.Lock()
	cancelableIn = cs
	out = rl.Stdout()
	errOut = rl.Stderr()
	mu.Unlock()

	return nil
}

// InterruptReadline closes the cancelable stdin: a pending Readline() call
// receives io.EOF and returns. Idempotent.
func InterruptReadline() {
	if cancelableIn != nil {
		_ = cancelableIn.Close()
	}
}

// SetPrompt sets the prompt string. Assumes Init has already run.
func SetPrompt(prompt string) {
	rl.SetPrompt(prompt)
}

// Rl returns the current readline instance, or nil before Init.
func Rl() *readline.Instance {
	return rl
}

// Stdout returns the current stdout writer.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// Stderr returns the current stderr writer.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return errOut
}

// Print writes to Stdout with no trailing newline.
func Print(a ...any) {
	fmt.Fprint(Stdout(), a...)
}

// Println writes to Stdout followed by a newline. Works before Init too,
// falling back to os.Stdout.
func Println(a ...any) {
	fmt.Fprintln(Stdout(), a...)
}

// Printf formats and writes to Stdout.
func Printf(format string, a ...any) {
	fmt.Fprintf(Stdout(), format, a...)
}

// ErrPrint writes to Stderr with no trailing newline.
func ErrPrint(a ...any) {
	fmt.Fprint(Stderr(), a...)
}

// ErrPrintln writes to Stderr followed by a newline.
func ErrPrintln(a ...any) {
	fmt.Fprintln(Stderr(), a...)
}

// ErrPrintf formats and writes to Stderr.
func ErrPrintf(format string, a ...any) {
	fmt.Fprintf(Stderr(), format, a...)
}

// PP pretty-prints a value to Stdout. Handy for debugging; avoid on hot
// paths since formatting allocates.
func PP(v any) {
	fmt.Fprintf(Stdout(), "%# v\n", pretty.Formatter(v))
}

// Pf returns the pretty-printed form of a value.
func Pf(v any) string {
	return fmt.Sprintf("%# v\n", pretty.Formatter(v))
}
