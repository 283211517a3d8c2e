package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csvetl/internal/db/pgstore"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// GoogleCloudSQLConnector connects to Cloud SQL for PostgreSQL with IAM
// database authentication through the Cloud SQL Go Connector.
//
// The dialer lives as long as the returned store and is released by its Close.
type GoogleCloudSQLConnector struct {
	config   *csvetl.ConnectionConfig
	instance string
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM authentication.
// instance is the instance connection name in format: project:region:instance
func NewGoogleCloudSQLConnector(config *csvetl.ConnectionConfig, instance string) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		config:   config,
		instance: instance,
	}
}

// Connect dials through the Cloud SQL connector, which owns TLS and token
// refresh. sslmode is disabled on the pgx side for that reason.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (csvetl.Store, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloud SQL dialer: %w", csvetl.ErrConnection, err)
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s dbname=%s sslmode=disable",
		c.instance,
		c.config.Username,
		c.config.Database,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("%w: failed to parse connection config: %w", csvetl.ErrInvalidConfig, err)
	}

	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		dialer.Close()
		return nil, wrapConnectionError(err, c.instance, 0, c.config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		dialer.Close()
		return nil, wrapConnectionError(err, c.instance, 0, c.config.Database)
	}

	return pgstore.New(pool, pgstore.WithCloser(dialer.Close)), nil
}
