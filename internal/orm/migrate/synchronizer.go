// Package migrate realizes built tables in a live database.
// Only initial synchronization is supported; existing tables are never altered.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/breeze/internal/async"
	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
)

// Executor runs DDL statements
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// StepKind classifies a synchronization step
type StepKind int

const (
	StepDrop StepKind = iota
	StepCreate
	StepConstraint
	StepDropConstraint
)

// String returns the step kind name
func (k StepKind) String() string {
	switch k {
	case StepDrop:
		return "drop"
	case StepCreate:
		return "create"
	case StepDropConstraint:
		return "drop constraint"
	default:
		return "constraint"
	}
}

// Step is one DDL statement of a plan
type Step struct {
	Kind  StepKind
	Table string
	SQL   string
}

// Synchronizer applies table definitions to a database
type Synchronizer struct {
	db     Executor
	tables []*codegen.TableDef
	ddl    *codegen.DDLGenerator
	logger *zap.Logger
}

// NewSynchronizer creates a synchronizer for tables in dependency order
func NewSynchronizer(db Executor, d dialect.Dialect, tables []*codegen.TableDef, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		db:     db,
		tables: tables,
		ddl:    codegen.NewDDLGenerator(d),
		logger: logger,
	}
}

// Plan returns the statements Sync would run.
// Drops run in reverse dependency order after the cycle-closing foreign keys are removed,
// creates in dependency order with join tables last.
func (s *Synchronizer) Plan(dropFirst bool) ([]Step, error) {
	var steps []Step

	if dropFirst {
		for _, t := range s.tables {
			for _, stmt := range s.ddl.GenerateDropDeferredConstraints([]*codegen.TableDef{t}) {
				steps = append(steps, Step{Kind: StepDropConstraint, Table: t.Name, SQL: stmt})
			}
		}
		for i := len(s.tables) - 1; i >= 0; i-- {
			t := s.tables[i]
			steps = append(steps, Step{Kind: StepDrop, Table: t.Name, SQL: s.ddl.GenerateDropTable(t)})
		}
	}

	for _, t := range s.tables {
		stmt, err := s.ddl.GenerateCreateTable(t)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		steps = append(steps, Step{Kind: StepCreate, Table: t.Name, SQL: stmt})
	}

	for _, t := range s.tables {
		for _, stmt := range s.ddl.GenerateDeferredConstraints([]*codegen.TableDef{t}) {
			steps = append(steps, Step{Kind: StepConstraint, Table: t.Name, SQL: stmt})
		}
	}

	return steps, nil
}

// Sync creates every table, dropping existing ones first when dropFirst is set.
// The first failure stops the run and is returned as a *SchemaSyncError; nothing is retried.
// After a failure the database state is unknown until a later Sync(ctx, true) succeeds.
func (s *Synchronizer) Sync(ctx context.Context, dropFirst bool) error {
	steps, err := s.Plan(dropFirst)
	if err != nil {
		return err
	}

	s.logger.Info("synchronizing schema",
		zap.Int("tables", len(s.tables)),
		zap.Bool("drop_first", dropFirst))

	for _, step := range steps {
		s.logger.Debug("executing ddl",
			zap.String("kind", step.Kind.String()),
			zap.String("table", step.Table),
			zap.String("sql", step.SQL))

		if _, err := s.db.ExecContext(ctx, step.SQL); err != nil {
			// Without a prior drop, cycle constraints may already be in place.
			if step.Kind == StepConstraint && !dropFirst && isDuplicateObject(err) {
				s.logger.Debug("constraint already exists", zap.String("table", step.Table))
				continue
			}
			// The first drop of a fresh database finds nothing to remove.
			if step.Kind == StepDropConstraint && isMissingObject(err) {
				s.logger.Debug("constraint not present", zap.String("table", step.Table))
				continue
			}
			s.logger.Error("ddl failed",
				zap.String("table", step.Table),
				zap.Error(err))
			return &SchemaSyncError{Table: step.Table, Statement: step.SQL, Err: err}
		}
	}

	s.logger.Info("schema synchronized", zap.Int("statements", len(steps)))
	return nil
}

// SyncAsync runs Sync in the background
func (s *Synchronizer) SyncAsync(ctx context.Context, dropFirst bool) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Sync(ctx, dropFirst)
	})
}

// Tables returns the table definitions in creation order
func (s *Synchronizer) Tables() []*codegen.TableDef {
	return s.tables
}
