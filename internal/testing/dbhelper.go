// Package testing holds helpers shared by csvetl integration tests.
package testing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csvetl/internal/testinfra"
)

// TestConnEnvVar overrides the auto-started container.
const TestConnEnvVar = "CSVETL_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartSimplePostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the PostgreSQL test connection string.
// Priority: CSVETL_TEST_CONN > auto-started testcontainer > skip.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnvVar); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnvVar, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// GetTestPool opens a pool that is closed when the test completes.
func GetTestPool(t *testing.T, connString string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// UniqueTableName returns a fresh lowercase table name and drops the table
// when the test completes.
func UniqueTableName(t *testing.T, pool *pgxpool.Pool, prefix string) string {
	t.Helper()

	name := fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	t.Cleanup(func() {
		drop := "DROP TABLE IF EXISTS " + pgx.Identifier{name}.Sanitize()
		if _, err := pool.Exec(context.Background(), drop); err != nil {
			t.Logf("Warning: failed to drop %s: %v", name, err)
		}
	})
	return name
}

// ForceApprover approves every replace request.
type ForceApprover struct{}

func (a *ForceApprover) RequestApproval(ctx context.Context, table string) (bool, error) {
	return true, nil
}

// DenyApprover rejects every replace request.
type DenyApprover struct{}

func (a *DenyApprover) RequestApproval(ctx context.Context, table string) (bool, error) {
	return false, nil
}
