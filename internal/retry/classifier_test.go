package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDatabaseErrorClassifier_IsTransient(t *testing.T) {
	classifier := NewDatabaseErrorClassifier()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"pg cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"pg invalid password", &pgconn.PgError{Code: "28P01"}, false},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"wrapped pg error", fmt.Errorf("ping: %w", &pgconn.PgError{Code: "08001"}), true},
		{"mysql too many connections", &mysql.MySQLError{Number: 1040}, true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql access denied", &mysql.MySQLError{Number: 1045}, false},
		{"mysql unknown database", &mysql.MySQLError{Number: 1049}, false},
		{"mysql invalid conn", mysql.ErrInvalidConn, true},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, true},
		{"connection reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, true},
		{"permanent dns", &net.DNSError{Err: "no such host", Name: "nowhere", IsNotFound: true}, false},
		{"temporary dns", &net.DNSError{Err: "server misbehaving", Name: "db", IsTemporary: true}, true},
		{"locked message", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("password authentication failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.IsTransient(tt.err))
		})
	}
}
