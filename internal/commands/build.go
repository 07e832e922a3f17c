package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dynafix"
	"github.com/syssam/dynafix/schema"
)

type buildOptions struct {
	count        int
	set          []string
	lesson       string
	persist      bool
	fillNullable bool
	output       string
}

func newBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build MODEL",
		Short: "Build instances of a model",
		Long: `Build instances of a model and print them. Field values are set with
--set name=value, where the value is read as a YAML scalar and the name may
follow relations with "__".`,
		Example: `  # Print a book with generated values
  dynafix build Book -s schema.yaml

  # Save three books of 300 pages, as JSON
  dynafix build Book -s schema.yaml -n 3 --set pages=300 --persist -o json

  # Use a lesson of the library
  dynafix build Book -s schema.yaml --lessons lessons.yaml --lesson long`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireSession(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd, s, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 1, "Number of instances")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Field value as name=value")
	cmd.Flags().StringVar(&opts.lesson, "lesson", "", "Lesson of the library to start from")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "Save the instances")
	cmd.Flags().BoolVar(&opts.fillNullable, "fill-nullable", false, "Fill the optional fields")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, json, yaml)")

	return cmd
}

func runBuild(cmd *cobra.Command, s *session, model string, opts *buildOptions) error {
	values, err := parseValues(opts.set)
	if err != nil {
		return err
	}
	var bopts []dynafix.Option
	if opts.lesson != "" {
		bopts = append(bopts, dynafix.Lesson(opts.lesson))
	}
	if cmd.Flags().Changed("fill-nullable") {
		bopts = append(bopts, dynafix.FillNullable(opts.fillNullable))
	}
	build := s.fx.NewN
	if opts.persist {
		build = s.fx.GetN
	}
	entities, err := build(cmd.Context(), opts.count, model, values, bopts...)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	switch opts.output {
	case "json":
		return printEntitiesJSON(w, entities)
	case "yaml":
		return printEntitiesYAML(w, entities)
	case "text", "":
		for _, e := range entities {
			if err := dynafix.Print(w, e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q, expected text, json or yaml", opts.output)
	}
}

// parseValues reads name=value pairs. Values are YAML scalars, so numbers
// and booleans keep their type.
func parseValues(pairs []string) (dynafix.Values, error) {
	values := make(dynafix.Values, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid value %q, expected name=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}

func printEntitiesJSON(w io.Writer, entities []*schema.Entity) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records(entities))
}

func printEntitiesYAML(w io.Writer, entities []*schema.Entity) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(records(entities))
}

// records converts entities to plain maps. Related entities are replaced by
// their key.
func records(entities []*schema.Entity) []map[string]any {
	out := make([]map[string]any, len(entities))
	for i, e := range entities {
		m := e.Model()
		r := make(map[string]any, len(m.Fields())+len(m.ManyToMany()))
		for _, f := range m.Fields() {
			r[f.Name] = plain(e.Get(f.Name))
		}
		for _, f := range m.ManyToMany() {
			ids := make([]any, 0)
			for _, t := range e.Related(f.Name) {
				ids = append(ids, t.ID())
			}
			r[f.Name] = ids
		}
		out[i] = r
	}
	return out
}

func plain(v any) any {
	switch v := v.(type) {
	case *schema.Entity:
		if v == nil {
			return nil
		}
		return v.ID()
	case *schema.File:
		if v == nil {
			return nil
		}
		return v.Name
	case time.Time:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}
