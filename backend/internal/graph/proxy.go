package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "storygraph/backend/pkg/errors"
	"storygraph/backend/pkg/logger"
)

// Statement is one parameterized Cypher statement ready for execution.
type Statement struct {
	Text   string
	Params map[string]any
}

// Runner executes ordered statement batches against the graph. Satisfied by
// Proxy in production and by fakes in tests.
type Runner interface {
	// RunWrite executes every statement, in order, inside a single write
	// transaction. Either all statements commit or none do.
	RunWrite(ctx context.Context, statements []Statement) error

	// RunRead executes one read statement and returns its rows.
	RunRead(ctx context.Context, stmt Statement) ([]map[string]any, error)
}

// Proxy handles all Neo4j database operations.
type Proxy struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewProxy creates a new graph proxy over the given driver.
func NewProxy(driver neo4j.DriverWithContext, database string) *Proxy {
	return &Proxy{
		driver:   driver,
		database: database,
		logger:   logger.Get(),
	}
}

// Close closes the Neo4j driver connection.
func (p *Proxy) Close() error {
	return p.driver.Close(context.Background())
}

// VerifyConnectivity checks that the database is reachable.
func (p *Proxy) VerifyConnectivity(ctx context.Context) error {
	if err := p.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewGraphError("database unreachable", err)
	}
	return nil
}

// RunWrite executes the statements in order inside one managed write
// transaction. A failure on any statement rolls back the whole batch.
func (p *Proxy) RunWrite(ctx context.Context, statements []Statement) error {
	if len(statements) == 0 {
		return nil
	}

	session := p.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: p.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for i, stmt := range statements {
			result, err := tx.Run(ctx, stmt.Text, stmt.Params)
			if err != nil {
				return nil, fmt.Errorf("statement %d failed: %w", i, err)
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, fmt.Errorf("statement %d failed: %w", i, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		p.logger.Error("Write batch failed",
			zap.Int("statements", len(statements)),
			zap.Error(err),
		)
		return apperrors.NewGraphError("write batch failed", err)
	}

	p.logger.Debug("Write batch committed", zap.Int("statements", len(statements)))
	return nil
}

// RunRead executes one read statement in a managed read transaction and
// returns the result rows as maps keyed by return-variable name.
func (p *Proxy) RunRead(ctx context.Context, stmt Statement) ([]map[string]any, error) {
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: p.database,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, stmt.Text, stmt.Params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, record := range records {
			rows = append(rows, record.AsMap())
		}
		return rows, nil
	})
	if err != nil {
		p.logger.Error("Read query failed", zap.Error(err))
		return nil, apperrors.NewGraphError("read query failed", err)
	}

	return rows.([]map[string]any), nil
}
