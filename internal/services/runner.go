package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vvka-141/csvetl/internal/loader"
	"github.com/vvka-141/csvetl/internal/schema"
	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// rollbackTimeout bounds a rollback issued after the run context ended.
const rollbackTimeout = 30 * time.Second

// Extractor reads the source into an all-text Dataset.
type Extractor interface {
	Extract(ctx context.Context, cfg csvetl.SourceConfig) (*csvetl.Dataset, error)
}

// Transformer produces the typed Dataset that is loaded.
type Transformer interface {
	Transform(ctx context.Context, ds *csvetl.Dataset, specs csvetl.ColumnTransformSpec, load csvetl.LoadConfig) (*csvetl.Dataset, error)
}

// Provisioner makes sure the destination table exists inside the run transaction.
type Provisioner interface {
	Provision(ctx context.Context, tx csvetl.Tx, ds *csvetl.Dataset, load csvetl.LoadConfig) (schema.ProvisionResult, error)
}

// Loader writes the rows inside the run transaction.
type Loader interface {
	Load(ctx context.Context, tx csvetl.Tx, ds *csvetl.Dataset, load csvetl.LoadConfig) (loader.LoadResult, error)
}

// RunService implements csvetl.Runner.
// Thread-Safety: Run may be called concurrently; runs share no state beyond
// the injected dependencies, each of which must then be safe for concurrent use.
type RunService struct {
	connectorFactory func(*csvetl.ConnectionConfig) (csvetl.Connector, error)
	approver         csvetl.Approver
	logger           csvetl.Logger
	extractor        Extractor
	transformer      Transformer
	provisioner      Provisioner
	loader           Loader
	now              func() time.Time
}

// NewRunService creates a RunService with all dependencies injected.
// Panics on nil dependencies: they are wiring errors, not run conditions.
func NewRunService(
	connectorFactory func(*csvetl.ConnectionConfig) (csvetl.Connector, error),
	approver csvetl.Approver,
	logger csvetl.Logger,
	extractor Extractor,
	transformer Transformer,
	provisioner Provisioner,
	loader Loader,
) *RunService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if extractor == nil {
		panic("extractor cannot be nil")
	}
	if transformer == nil {
		panic("transformer cannot be nil")
	}
	if provisioner == nil {
		panic("provisioner cannot be nil")
	}
	if loader == nil {
		panic("loader cannot be nil")
	}

	return &RunService{
		connectorFactory: connectorFactory,
		approver:         approver,
		logger:           logger,
		extractor:        extractor,
		transformer:      transformer,
		provisioner:      provisioner,
		loader:           loader,
		now:              time.Now,
	}
}

var _ csvetl.Runner = (*RunService)(nil)

// run tracks the state machine of one Run call.
type run struct {
	id     string
	states []csvetl.RunState
	logger csvetl.Logger
}

func (r *run) current() csvetl.RunState {
	return r.states[len(r.states)-1]
}

func (r *run) advance(state csvetl.RunState) {
	r.logger.Verbose("[%s] %s → %s", r.id, r.current(), state)
	r.states = append(r.states, state)
}

// fail records the terminal Failed state. The StageError carries the state
// the run was in when err occurred.
func (r *run) fail(err error) *csvetl.StageError {
	se := &csvetl.StageError{Stage: r.current(), RunID: r.id, Err: err}
	r.states = append(r.states, csvetl.StateFailed)
	return se
}

// Run executes Idle → Connected → Extracted → Transformed → Provisioned →
// Loaded → Committed. Every failure returns a *csvetl.StageError; once the
// transaction has begun, the destination is rolled back before Run returns.
func (s *RunService) Run(ctx context.Context, config csvetl.RunConfig) (*csvetl.RunResult, error) {
	start := s.now()
	r := &run{id: uuid.NewString(), states: []csvetl.RunState{csvetl.StateIdle}, logger: s.logger}

	config.Load = config.Load.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, r.fail(err)
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	s.logger.Verbose("[%s] Loading %s into %s (%s)", r.id, config.Source.Path, config.Load.Table, config.Load.Strategy)

	store, err := s.connect(ctx, &config.Connection)
	if err != nil {
		return nil, r.fail(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			s.logger.Error("[%s] failed to close connection: %v", r.id, err)
		}
	}()
	r.advance(csvetl.StateConnected)

	raw, err := s.extractor.Extract(ctx, config.Source)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(csvetl.StateExtracted)

	ds, err := s.transformer.Transform(ctx, raw, config.Transforms, config.Load)
	if err != nil {
		return nil, r.fail(err)
	}
	r.advance(csvetl.StateTransformed)

	if config.Load.Strategy == csvetl.StrategyReplace {
		if err := s.approve(ctx, config.Load.Table); err != nil {
			return nil, r.fail(err)
		}
	}

	tx, err := store.Begin(ctx)
	if err != nil {
		return nil, r.fail(fmt.Errorf("failed to begin transaction: %w: %w", err, csvetl.ErrWrite))
	}
	// Covers panics; Rollback after Commit or an explicit Rollback is a no-op.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	provisioned, err := s.provisioner.Provision(ctx, tx, ds, config.Load)
	if err != nil {
		return nil, s.rollback(ctx, r, tx, err)
	}
	r.advance(csvetl.StateProvisioned)

	loaded, err := s.loader.Load(ctx, tx, ds, config.Load)
	if err != nil {
		return nil, s.rollback(ctx, r, tx, err)
	}
	r.advance(csvetl.StateLoaded)

	if err := tx.Commit(ctx); err != nil {
		return nil, s.rollback(ctx, r, tx, fmt.Errorf("failed to commit: %w: %w", err, csvetl.ErrWrite))
	}
	r.advance(csvetl.StateCommitted)

	result := &csvetl.RunResult{
		RunID:        r.id,
		Table:        config.Load.Table,
		Strategy:     config.Load.Strategy,
		RowsLoaded:   loaded.Rows,
		Batches:      loaded.Batches,
		TableCreated: provisioned.Created,
		Schema:       provisioned.Schema,
		States:       r.states,
		Duration:     s.now().Sub(start),
	}
	s.logger.Verbose("[%s] Committed %d rows in %d batches", r.id, result.RowsLoaded, result.Batches)
	return result, nil
}

func (s *RunService) connect(ctx context.Context, config *csvetl.ConnectionConfig) (csvetl.Store, error) {
	connector, err := s.connectorFactory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	store, err := connector.Connect(ctx)
	if err != nil {
		if errors.Is(err, csvetl.ErrConnection) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", csvetl.ErrConnection, err)
	}
	return store, nil
}

func (s *RunService) approve(ctx context.Context, table string) error {
	approved, err := s.approver.RequestApproval(ctx, table)
	if err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}
	if !approved {
		return fmt.Errorf("replace of %s was not confirmed: %w", table, csvetl.ErrApprovalDenied)
	}
	return nil
}

// rollback aborts tx with a context that survives cancellation of ctx, so a
// timed-out or interrupted run still releases its writes.
func (s *RunService) rollback(ctx context.Context, r *run, tx csvetl.Tx, cause error) error {
	se := r.fail(cause)

	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := tx.Rollback(rbCtx); err != nil {
		se.RollbackErr = err
		s.logger.Error("[%s] rollback failed: %v", r.id, err)
		return se
	}
	se.RolledBack = true
	s.logger.Verbose("[%s] Rolled back after failure during %s", r.id, se.Stage)
	return se
}
