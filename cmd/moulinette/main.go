// Package main provides the moulinette binary entry point.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/envergo/moulinette/commands"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
