package db

import (
	"context"
	"fmt"
	"time"

	"github.com/vvka-141/csvetl/internal/db/pgstore"
	"github.com/vvka-141/csvetl/internal/retry"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// tokenExpiryWarning is how close to expiry a fresh token must be before
// Connect reports it. A load that outlives its token keeps its connection.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector connects to PostgreSQL using a short-lived cloud
// token (AWS IAM, Azure Entra ID) as the password.
type TokenBasedConnector struct {
	config        *csvetl.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        csvetl.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error messages (e.g., "AWS IAM", "Azure").
// Panics if tokenProvider or logger is nil.
func NewTokenBasedConnector(config *csvetl.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger csvetl.Logger) *TokenBasedConnector {
	if tokenProvider == nil {
		panic("tokenProvider cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newRetryExecutor(config.ConnectRetries, logger),
		providerName:  providerName,
		logger:        logger,
	}
}

// Connect acquires a fresh token for every attempt.
func (c *TokenBasedConnector) Connect(ctx context.Context) (csvetl.Store, error) {
	var store *pgstore.Store

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("%w: failed to acquire %s token: %w", csvetl.ErrConnection, c.providerName, err)
		}

		c.logger.Verbose("Acquired token from %s", c.tokenProvider)
		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
		}

		configWithToken := *c.config
		configWithToken.Password = token

		// A single attempt here; the outer executor owns the retries.
		pool, err := openPool(ctx, newRetryExecutor(0, c.logger), &configWithToken, BuildConnectionString(&configWithToken))
		if err != nil {
			return err
		}
		store = pgstore.New(pool)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}
