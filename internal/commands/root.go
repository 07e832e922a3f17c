// Package commands contains all CLI command definitions.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command for the CLI. Settings
// are read from the --config file and from the DYNAFIX_* variables returned
// by getenv.
func NewRootCmd(getenv func(string) string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "dynafix",
		Short: "Build test fixtures from model definitions",
		Long: `dynafix fills model instances with generated data, following relations
and the lessons taught to its library.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, getenv, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(withSession(cmd.Context(), s))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireSession(cmd)
			if err != nil {
				return err
			}
			return s.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.schema, "schema", "s", "", "Schema file with the model definitions (YAML or JSON)")
	flags.StringVarP(&opts.config, "config", "c", "", "Settings file (YAML)")
	flags.StringVar(&opts.database, "database", "memory", "Database (memory, sqlite, postgres, mysql)")
	flags.StringVar(&opts.dsn, "dsn", "", "Data source name of the database")
	flags.StringSliceVar(&opts.lessons, "lessons", nil, "Lesson files loaded into the library")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newMigrateCmd())

	return rootCmd
}
