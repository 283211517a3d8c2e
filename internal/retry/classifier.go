package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MySQL server error numbers treated as transient.
const (
	mysqlTooManyConnections = 1040
	mysqlCannotGetHostname  = 1042
	mysqlHandshakeError     = 1043
	mysqlServerShutdown     = 1053
	mysqlLockWaitTimeout    = 1205
	mysqlDeadlock           = 1213
)

// DatabaseErrorClassifier recognises transient failures from PostgreSQL,
// MySQL and SQLite as well as plain network errors.
type DatabaseErrorClassifier struct{}

func NewDatabaseErrorClassifier() *DatabaseErrorClassifier {
	return &DatabaseErrorClassifier{}
}

// IsTransient reports whether retrying err could succeed.
func (c *DatabaseErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return isTransientMySQLNumber(myErr.Number)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return isTransientSQLiteCode(liteErr.Code())
	}

	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	return isNetworkError(err) || hasTransientMessage(err)
}

// isTransientPgCode covers classes 08 (connection), 53 (resources) and 57
// (operator intervention) plus serialization, deadlock and lock timeouts.
func isTransientPgCode(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"),
		strings.HasPrefix(code, "53"),
		strings.HasPrefix(code, "57"):
		return true
	}
	switch code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

func isTransientMySQLNumber(n uint16) bool {
	switch n {
	case mysqlTooManyConnections, mysqlCannotGetHostname, mysqlHandshakeError,
		mysqlServerShutdown, mysqlLockWaitTimeout, mysqlDeadlock:
		return true
	}
	return false
}

func isTransientSQLiteCode(code int) bool {
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ENETUNREACH, syscall.EHOSTUNREACH} {
			if errors.Is(opErr.Err, errno) {
				return true
			}
		}
	}
	return false
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"database is locked",
}

func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
