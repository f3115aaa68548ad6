package sink

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"sunpoll/internal/config"
	"sunpoll/internal/constants"
	"sunpoll/internal/logger"
	"sunpoll/internal/telemetry"
	"sunpoll/pkg/clock"
)

// SQLOpener returns a connected handle; the sink closes it after the write.
type SQLOpener func(ctx context.Context, driverName, dsn string) (*sql.DB, error)

// Dialect captures what differs between the relational backends.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder func(n int) string
	Quote       func(ident string) string
}

var MySQLDialect = Dialect{
	Name:        constants.SectionMySQL,
	Driver:      "mysql",
	Placeholder: func(int) string { return "?" },
	Quote:       func(ident string) string { return "`" + strings.ReplaceAll(ident, "`", "``") + "`" },
}

var PostgresDialect = Dialect{
	Name:        constants.SectionPostgres,
	Driver:      "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	Quote:       func(ident string) string { return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"` },
}

// SQL inserts one row per delivery into the current month's table.
type SQL struct {
	dialect Dialect
	dsn     string
	open    SQLOpener
	clock   clock.Clock
	log     logger.Logger
}

func NewSQL(dialect Dialect, dsn string, open SQLOpener, clk clock.Clock, log logger.Logger) *SQL {
	if clk == nil {
		clk = clock.New()
	}
	return &SQL{
		dialect: dialect,
		dsn:     dsn,
		open:    open,
		clock:   clk,
		log:     log,
	}
}

func NewMySQL(cfg *config.MySQLConfig, open SQLOpener, clk clock.Clock, log logger.Logger) *SQL {
	return NewSQL(MySQLDialect, MySQLDSN(cfg), open, clk, log)
}

func NewPostgres(cfg *config.PostgresConfig, open SQLOpener, clk clock.Clock, log logger.Logger) *SQL {
	return NewSQL(PostgresDialect, PostgresDSN(cfg), open, clk, log)
}

func MySQLDSN(cfg *config.MySQLConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.DBName
	return c.FormatDSN()
}

func PostgresDSN(cfg *config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// TableName returns the monthly table for t, e.g. power_20243 for March 2024.
// The month is not zero-padded.
func TableName(t time.Time) string {
	return fmt.Sprintf("%s_%d%d", constants.Measurement, t.Year(), int(t.Month()))
}

// InsertStatement builds the parameterized INSERT for rec. Only the table
// name is formatted into the text; values are always bound.
func (d Dialect) InsertStatement(table string, rec *telemetry.Record) string {
	names := rec.Names()
	columns := make([]string, len(names))
	params := make([]string, len(names))
	for i, name := range names {
		columns[i] = d.Quote(name)
		params[i] = d.Placeholder(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table),
		strings.Join(columns, ", "),
		strings.Join(params, ", "),
	)
}

func (s *SQL) Name() string {
	return s.dialect.Name
}

func (s *SQL) Persist(ctx context.Context, d Delivery) error {
	table := TableName(s.clock.Now())
	query := s.dialect.InsertStatement(table, d.Record)

	db, err := s.open(ctx, s.dialect.Driver, s.dsn)
	if err != nil {
		return sinkError(s.Name(), fmt.Errorf("connect: %w", err))
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			s.log.WarnwCtx(ctx, "Failed to close database connection", "error", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return sinkError(s.Name(), fmt.Errorf("begin transaction: %w", err))
	}

	if _, err := tx.ExecContext(ctx, query, d.Record.Values()...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WarnwCtx(ctx, "Rollback failed", "error", rbErr)
		}
		return sinkError(s.Name(), fmt.Errorf("insert into %s: %w", table, err))
	}

	if err := tx.Commit(); err != nil {
		return sinkError(s.Name(), fmt.Errorf("commit: %w", err))
	}

	s.log.DebugwCtx(ctx, "Row inserted", "table", table, "columns", d.Record.Len())
	return nil
}

// Probe opens and closes a connection without writing.
func (s *SQL) Probe(ctx context.Context) error {
	db, err := s.open(ctx, s.dialect.Driver, s.dsn)
	if err != nil {
		return err
	}
	return db.Close()
}
