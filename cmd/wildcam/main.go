package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "wildcam:", err)
		os.Exit(1)
	}
}
