// Package internal contains the main application logic for the CLI.
package internal

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/syssam/dynafix/internal/commands"
)

// Run is the main application logic, extracted for testability.
// It accepts OS dependencies as parameters (context, env lookup).
func Run(ctx context.Context, getenv func(string) string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	rootCmd := commands.NewRootCmd(getenv)
	rootCmd.SilenceErrors = true
	return rootCmd.ExecuteContext(ctx)
}
