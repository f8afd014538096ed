package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted run: the lock is released, nothing to report.
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "galaxysync: %v\n", err)
		os.Exit(1)
	}
}
