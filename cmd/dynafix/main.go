// Package main is the entry point for the dynafix CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/syssam/dynafix/cmd/dynafix/internal"
)

func main() {
	if err := internal.Run(context.Background(), os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
