// Package check reports which models can be built with their default
// configuration.
//
// Every model is built and saved inside its own transaction, which is always
// rolled back, so a check leaves the store unchanged:
//
//	report, err := check.Run(ctx, fx, check.WithWorkers(4))
//	if err != nil {
//		return err
//	}
//	report.WriteText(os.Stdout)
package check

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/dynafix"
)

// Result is the outcome of building one model.
type Result struct {
	Model    string        `json:"model"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report holds the results of a check, in registry order.
type Report struct {
	Results []Result `json:"results"`
}

// Failed returns the number of models that could not be built.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK {
			n++
		}
	}
	return n
}

type config struct {
	workers  int
	patterns []string
	opts     []dynafix.Option
}

// Option configures a check.
type Option func(*config)

// WithWorkers sets how many models are built at the same time.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithModels limits the check to the models matching one of the patterns.
// Patterns may use the '*' and '?' wildcards.
func WithModels(patterns ...string) Option {
	return func(c *config) { c.patterns = append(c.patterns, patterns...) }
}

// WithBuildOptions sets the options of every build.
func WithBuildOptions(opts ...dynafix.Option) Option {
	return func(c *config) { c.opts = append(c.opts, opts...) }
}

// Run builds every concrete model of the fixture registry. A model that
// cannot be built is reported in its result; Run only fails if the context
// is canceled or a transaction cannot be started or rolled back.
func Run(ctx context.Context, fx *dynafix.Fixture, opts ...Option) (*Report, error) {
	c := &config{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	var models []string
	for _, m := range fx.Registry().Models() {
		if !m.IsAbstract() && c.match(m.Name()) {
			models = append(models, m.Name())
		}
	}
	report := &Report{Results: make([]Result, len(models))}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(c.workers, 1))
	for i, model := range models {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, err := build(ctx, fx, model, c.opts)
			if err != nil {
				return err
			}
			report.Results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func build(ctx context.Context, fx *dynafix.Fixture, model string, opts []dynafix.Option) (Result, error) {
	tx, err := fx.Store().Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("check: begin transaction for %s: %w", model, err)
	}
	start := time.Now()
	_, berr := fx.Bind(tx).Get(ctx, model, nil, opts...)
	res := Result{Model: model, OK: berr == nil, Duration: time.Since(start)}
	if berr != nil {
		res.Error = berr.Error()
	}
	if err := tx.Rollback(); err != nil {
		return Result{}, fmt.Errorf("check: rollback %s: %w", model, err)
	}
	return res, nil
}

func (c *config) match(name string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, p := range c.patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#27ca3f")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#bababa"))
)

// WriteText writes one line per model followed by a summary.
func (r *Report) WriteText(w io.Writer) error {
	width := 0
	for _, res := range r.Results {
		width = max(width, len(res.Model))
	}
	for _, res := range r.Results {
		status := okStyle.Render("OK  ")
		if !res.OK {
			status = failStyle.Render("FAIL")
		}
		line := fmt.Sprintf("%s %-*s %s", status, width, res.Model, dimStyle.Render(res.Duration.Round(time.Microsecond).String()))
		if res.Error != "" {
			line += "\n     " + res.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d models, %d failed\n", len(r.Results), r.Failed())
	return err
}

// WriteCSV writes the results as CSV with a header row.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"model", "ok", "error", "duration_ms"}); err != nil {
		return err
	}
	for _, res := range r.Results {
		record := []string{
			res.Model,
			strconv.FormatBool(res.OK),
			res.Error,
			strconv.FormatFloat(float64(res.Duration)/float64(time.Millisecond), 'f', 3, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
