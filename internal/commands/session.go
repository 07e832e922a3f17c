package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/syssam/dynafix"
	"github.com/syssam/dynafix/config"
	"github.com/syssam/dynafix/dialect"
	"github.com/syssam/dynafix/dialect/sql"
	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/load"
	"github.com/syssam/dynafix/store"
	"github.com/syssam/dynafix/store/memstore"
	"github.com/syssam/dynafix/store/sqlstore"
)

// Databases lists the accepted values of the --database flag.
var Databases = []string{"memory", dialect.SQLite, dialect.Postgres, dialect.MySQL}

// ErrNoSession is returned by commands run without a loaded session.
var ErrNoSession = errors.New("no session loaded, the command must run under the root command")

type rootOptions struct {
	schema   string
	config   string
	database string
	dsn      string
	lessons  []string
}

// session holds what a command needs to build fixtures.
type session struct {
	reg      *schema.Registry
	settings config.Settings
	store    store.Store
	sql      *sqlstore.Store // nil for the memory database.
	fx       *dynafix.Fixture
	fopts    []dynafix.FixtureOption
	lessons  []string // from the --lessons flag.
	config   string   // settings file, if any.
	getenv   func(string) string
	close    func() error
}

type sessionKey struct{}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func requireSession(cmd *cobra.Command) (*session, error) {
	s, ok := cmd.Context().Value(sessionKey{}).(*session)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// openSession loads the schema and settings and connects to the database.
func openSession(ctx context.Context, opts *rootOptions, getenv func(string) string, stderr io.Writer) (*session, error) {
	if opts.schema == "" {
		return nil, errors.New("the --schema flag is required")
	}
	reg, err := load.LoadFile(opts.schema)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(opts.config, config.WithGetenv(getenv))
	if err != nil {
		return nil, err
	}
	s, err := newSession(ctx, reg, settings, opts, stderr)
	if err != nil {
		return nil, err
	}
	s.config, s.getenv = opts.config, getenv
	return s, nil
}

func newSession(ctx context.Context, reg *schema.Registry, settings config.Settings, opts *rootOptions, stderr io.Writer) (*session, error) {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	s := &session{reg: reg, lessons: opts.lessons, close: func() error { return nil }}
	fopts := []dynafix.FixtureOption{
		dynafix.WithLogger(logger),
		dynafix.WithOutput(stderr),
	}
	switch opts.database {
	case "", "memory":
		s.store = memstore.New(reg)
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
		dsn := opts.dsn
		if dsn == "" && opts.database != dialect.SQLite {
			return nil, fmt.Errorf("the --dsn flag is required for the %s database", opts.database)
		}
		if dsn == "" {
			dsn = ":memory:"
		}
		sopts := []sql.StatsOption{sql.WithSlowQueryLogger(logger)}
		if settings.Debug {
			sopts = append(sopts, sql.WithStatementLogger(logger))
		}
		drv, stats, err := sql.OpenWithStats(opts.database, dsn, sopts...)
		if err != nil {
			return nil, fmt.Errorf("open %s database: %w", opts.database, err)
		}
		if dsn == ":memory:" {
			drv.DB().SetMaxOpenConns(1)
		}
		s.close = drv.Close
		s.sql = sqlstore.New(reg, drv)
		s.store = s.sql
		if dsn == ":memory:" {
			if err := s.sql.Migrate(ctx); err != nil {
				_ = drv.Close()
				return nil, err
			}
		}
		fopts = append(fopts, dynafix.WithQueryStats(stats))
	default:
		return nil, fmt.Errorf("unknown database %q, expected one of %v", opts.database, Databases)
	}
	s.fopts = append(fopts, dynafix.WithStore(s.store))
	if err := s.reload(settings); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

// reload replaces the fixture of the session with one using settings. The
// store and the database connection are kept.
func (s *session) reload(settings config.Settings) error {
	settings.Lessons = append(slices.Clone(settings.Lessons), s.lessons...)
	fx := dynafix.NewFixture(s.reg, append(slices.Clip(s.fopts), dynafix.WithSettings(settings))...)
	if err := fx.Err(); err != nil {
		return err
	}
	s.settings = settings
	s.fx = fx
	return nil
}
