package sql

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/dynafix/dialect"
)

// QueryStats counts the statements executed through a StatsDriver.
type QueryStats struct {
	queries  atomic.Int64
	execs    atomic.Int64
	slow     atomic.Int64
	errors   atomic.Int64
	duration atomic.Int64
}

// Stats returns the current counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		Queries:  s.queries.Load(),
		Execs:    s.execs.Load(),
		Slow:     s.slow.Load(),
		Errors:   s.errors.Load(),
		Duration: time.Duration(s.duration.Load()),
	}
}

// StatsSnapshot holds the counters of a QueryStats at some point.
type StatsSnapshot struct {
	Queries  int64
	Execs    int64
	Slow     int64
	Errors   int64
	Duration time.Duration
}

// Statements returns the number of queries and execs.
func (s StatsSnapshot) Statements() int64 { return s.Queries + s.Execs }

// Sub returns the counters accumulated since prev.
func (s StatsSnapshot) Sub(prev StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		Queries:  s.Queries - prev.Queries,
		Execs:    s.Execs - prev.Execs,
		Slow:     s.Slow - prev.Slow,
		Errors:   s.Errors - prev.Errors,
		Duration: s.Duration - prev.Duration,
	}
}

// StatsDriver is a Driver counting its statements. Statements slower than
// the threshold are logged as warnings, and every statement is logged at
// debug level when a statement logger is set.
type StatsDriver struct {
	*Driver
	stats      *QueryStats
	threshold  time.Duration
	slowLog    *slog.Logger
	statements *slog.Logger
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Defaults to 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithSlowQueryLogger logs slow statements to l.
func WithSlowQueryLogger(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) { s.slowLog = l }
}

// WithStatementLogger logs every statement and transaction boundary to l
// at debug level.
func WithStatementLogger(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) { s.statements = l }
}

// NewStatsDriver wraps drv.
//
//	drv := sql.NewStatsDriver(sql.OpenDB(dialect.SQLite, db),
//		sql.WithSlowThreshold(200*time.Millisecond),
//		sql.WithSlowQueryLogger(slog.Default()),
//	)
//	st := sqlstore.New(reg, drv)
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{},
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenWithStats opens the named database behind a StatsDriver and returns
// the driver with its counters.
//
//	drv, stats, err := sql.OpenWithStats(dialect.Postgres, dsn)
//	if err != nil {
//		return err
//	}
//	fx := dynafix.NewFixture(reg,
//		dynafix.WithStore(sqlstore.New(reg, drv)),
//		dynafix.WithQueryStats(stats),
//	)
func OpenWithStats(name, source string, opts ...StatsOption) (*StatsDriver, *QueryStats, error) {
	drv, err := Open(name, source)
	if err != nil {
		return nil, nil, err
	}
	s := NewStatsDriver(drv, opts...)
	return s, s.stats, nil
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// Query executes a query and counts it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, &d.stats.queries, query, args, start, err)
	return err
}

// Exec executes a statement and counts it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, &d.stats.execs, query, args, start, err)
	return err
}

// Tx starts a transaction whose statements are counted by the driver.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.event(ctx, "begin")
	return &StatsTx{Tx: tx, driver: d}, nil
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, start time.Time, err error) {
	elapsed := time.Since(start)
	counter.Add(1)
	d.stats.duration.Add(int64(elapsed))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if d.statements != nil {
		d.statements.DebugContext(ctx, "dynafix: sql", "query", query, "args", args, "duration", elapsed, "error", err)
	}
	if elapsed > d.threshold {
		d.stats.slow.Add(1)
		if d.slowLog != nil {
			d.slowLog.WarnContext(ctx, "dynafix: slow query", "query", query, "args", args, "duration", elapsed)
		}
	}
}

func (d *StatsDriver) event(ctx context.Context, name string) {
	if d.statements != nil {
		d.statements.DebugContext(ctx, "dynafix: sql "+name)
	}
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and counts it.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.observe(ctx, &tx.driver.stats.queries, query, args, start, err)
	return err
}

// Exec executes a statement within the transaction and counts it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.observe(ctx, &tx.driver.stats.execs, query, args, start, err)
	return err
}

// Commit commits the transaction.
func (tx *StatsTx) Commit() error {
	tx.driver.event(context.Background(), "commit")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction.
func (tx *StatsTx) Rollback() error {
	tx.driver.event(context.Background(), "rollback")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
)
