package schema

import (
	"context"
	"fmt"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// ProvisionResult reports the schema a run works against.
type ProvisionResult struct {
	Schema csvetl.TableSchema

	// Created is true when the table did not exist and was created in this run.
	Created bool
}

// Provisioner ensures the destination table exists.
type Provisioner struct {
	logger csvetl.Logger
}

// NewProvisioner creates a Provisioner. Panics on a nil logger.
func NewProvisioner(logger csvetl.Logger) *Provisioner {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Provisioner{logger: logger}
}

// Provision infers the schema of ds and creates the table inside tx if it is
// absent. The existence check runs once, immediately before creation.
func (p *Provisioner) Provision(ctx context.Context, tx csvetl.Tx, ds *csvetl.Dataset, load csvetl.LoadConfig) (ProvisionResult, error) {
	schema, err := Infer(ds, load)
	if err != nil {
		return ProvisionResult{}, err
	}

	exists, err := tx.TableExists(ctx, schema.Name)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("failed to check whether table %s exists: %w: %w", schema.Name, err, csvetl.ErrWrite)
	}
	if exists {
		p.logger.Verbose("Table %s exists, leaving its structure unchanged", schema.Name)
		return ProvisionResult{Schema: schema}, nil
	}

	if err := tx.CreateTable(ctx, schema); err != nil {
		return ProvisionResult{}, fmt.Errorf("failed to create table %s: %w: %w", schema.Name, err, csvetl.ErrWrite)
	}
	p.logger.Verbose("Created table %s with %d columns", schema.Name, len(schema.Columns))

	return ProvisionResult{Schema: schema, Created: true}, nil
}
