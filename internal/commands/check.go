package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/dynafix/check"
	"github.com/syssam/dynafix/config"
)

// ErrCheckFailed is returned when at least one model cannot be built.
var ErrCheckFailed = errors.New("some models cannot be built")

type checkOptions struct {
	output  string
	workers int
	models  []string
	watch   bool
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every model can be built",
		Long: `Build and save one instance of every concrete model with the default
configuration. Every build runs in a transaction that is rolled back, so the
database is left unchanged.`,
		Example: `  # Check every model in memory
  dynafix check -s schema.yaml

  # Check the book models against a postgres database, as CSV
  dynafix check -s schema.yaml --database postgres --dsn "$DSN" --model 'Book*' -o csv

  # Check again every time the settings file changes
  dynafix check -s schema.yaml -c dynafix.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireSession(cmd)
			if err != nil {
				return err
			}
			return runCheck(cmd, s, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, csv, json)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "Number of models built at the same time")
	cmd.Flags().StringSliceVarP(&opts.models, "model", "m", nil, "Only check the models matching the pattern")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Check again when the settings file changes")

	return cmd
}

func runCheck(cmd *cobra.Command, s *session, opts *checkOptions) error {
	write, err := reportWriter(opts.output)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	run := func() error {
		report, err := check.Run(ctx, s.fx, check.WithWorkers(opts.workers), check.WithModels(opts.models...))
		if err != nil {
			return err
		}
		if err := write(report, cmd.OutOrStdout()); err != nil {
			return err
		}
		if report.Failed() > 0 {
			return fmt.Errorf("%w: %d of %d failed", ErrCheckFailed, report.Failed(), len(report.Results))
		}
		return nil
	}
	if !opts.watch {
		return run()
	}
	if s.config == "" {
		return errors.New("the --watch flag requires a settings file")
	}
	if err := run(); err != nil && !errors.Is(err, ErrCheckFailed) {
		return err
	}
	err = config.Watch(ctx, s.config, func(settings config.Settings, err error) {
		if err == nil {
			err = s.reload(settings)
		}
		if err == nil {
			err = run()
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}, config.WithGetenv(s.getenv))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func reportWriter(output string) (func(*check.Report, io.Writer) error, error) {
	switch output {
	case "text", "":
		return (*check.Report).WriteText, nil
	case "csv":
		return (*check.Report).WriteCSV, nil
	case "json":
		return (*check.Report).WriteJSON, nil
	default:
		return nil, fmt.Errorf("unknown output format %q, expected text, csv or json", output)
	}
}
