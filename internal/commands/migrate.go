package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type migrateOptions struct {
	dryRun bool
}

func newMigrateCmd() *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the models in a test database",
		Long: `Create the tables of all concrete models and the join tables of their
many-to-many relations. Existing tables are left untouched.`,
		Example: `  # Print the statements without running them
  dynafix migrate -s schema.yaml --database postgres --dsn "$DSN" --dry-run

  # Create the tables of a sqlite database
  dynafix migrate -s schema.yaml --database sqlite --dsn test.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireSession(cmd)
			if err != nil {
				return err
			}
			if s.sql == nil {
				return errors.New("the memory database has no tables to migrate")
			}
			if !opts.dryRun {
				return s.sql.Migrate(cmd.Context())
			}
			stmts, err := s.sql.Statements()
			if err != nil {
				return err
			}
			for _, stmt := range stmts {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", stmt); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the statements instead of running them")

	return cmd
}
