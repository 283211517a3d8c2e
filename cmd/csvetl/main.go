package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/csvetl/internal/cli"
	"github.com/vvka-141/csvetl/internal/tui"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(csvetl.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.RenderFailure(err))
		os.Exit(csvetl.ExitCodeForError(err))
	}
}
