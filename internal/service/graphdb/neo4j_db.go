package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/Kenkkila/grimoire-site/internal/config"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4jDatabase implements the GraphDatabase interface using Neo4j.
// The driver pools connections and is safe to share; each call opens its own session.
type Neo4jDatabase struct {
	driver       neo4j.DriverWithContext
	database     string
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewNeo4jDatabase creates a new Neo4j database instance
func NewNeo4jDatabase(cfg config.Neo4jConfig, logger *zap.Logger) (*Neo4jDatabase, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			// queries are idempotent reads; retry policy belongs to the caller
			c.MaxTransactionRetryTime = 0
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	db := &Neo4jDatabase{
		driver:       driver,
		database:     cfg.Database,
		queryTimeout: cfg.QueryTimeout(),
		logger:       logger,
	}

	return db, nil
}

// VerifyConnectivity checks if the database connection is working
func (db *Neo4jDatabase) VerifyConnectivity(ctx context.Context) error {
	if err := db.driver.VerifyConnectivity(ctx); err != nil {
		return &StoreError{Op: "verify connectivity", Err: err}
	}
	return nil
}

func (db *Neo4jDatabase) Available() bool {
	return true
}

// Close closes the database connection
func (db *Neo4jDatabase) Close(ctx context.Context) error {
	return db.driver.Close(ctx)
}

// ExecuteRead executes a read-only Cypher query and returns the raw records
func (db *Neo4jDatabase) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	if db.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.queryTimeout)
		defer cancel()
	}

	db.logger.Debug("Running query", zap.String("query", query), zap.Any("params", params))

	session := db.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: db.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})

	if err != nil {
		db.logger.Error("Failed to execute read query", zap.String("query", query), zap.Error(err))
		return nil, &StoreError{Op: "execute read", Err: err}
	}

	records, _ := result.([]*neo4j.Record)
	return records, nil
}
