package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mediacheck/internal/services"
)

// exitConfiguration marks runs that stopped before touching the inventory.
const exitConfiguration = 2

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		if services.IsFatal(err) {
			os.Exit(exitConfiguration)
		}
		os.Exit(1)
	}
}
