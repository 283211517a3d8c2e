package sqlstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/vvka-141/csvetl/pkg/csvetl"
	_ "modernc.org/sqlite"
)

// Pragmas applied to every SQLite connection.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

// SQLiteDSN builds a modernc.org/sqlite DSN with the standard pragmas.
func SQLiteDSN(path string) string {
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	if path == ":memory:" {
		// WAL is meaningless for a private in-memory database.
		params = params[:2]
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + strings.Join(params, "&")
}

// MySQLDSN builds a go-sql-driver/mysql DSN from a connection config.
func MySQLDSN(cfg *csvetl.ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	switch strings.ToLower(cfg.SSLMode) {
	case "require", "verify-ca", "verify-full":
		mc.TLSConfig = "true"
	case "prefer":
		mc.TLSConfig = "preferred"
	}
	for k, v := range cfg.AdditionalParams {
		mc.Params[k] = v
	}
	return mc.FormatDSN()
}

// Open connects and pings. SQLite handles are limited to one connection so
// an in-memory database is shared by every statement of the run.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Driver(), err)
	}
	if dialect.Driver() == csvetl.DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, dialect), nil
}
