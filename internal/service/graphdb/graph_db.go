package graphdb

import (
	"context"

	"github.com/Kenkkila/grimoire-site/internal/config"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphDatabase executes read-only Cypher against the graph store.
// Implementations must be safe for concurrent use.
type GraphDatabase interface {
	// ExecuteRead runs a read query and returns the raw records. Failures to reach the
	// store match ErrStoreUnavailable.
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)

	// VerifyConnectivity checks if the database connection is working
	VerifyConnectivity(ctx context.Context) error

	// Available is false for the degraded client created when the store could not be reached
	Available() bool

	// Close closes the database connection
	Close(ctx context.Context) error
}

// NewGraphDatabase connects to Neo4j. Missing credentials or a failed connectivity check
// do not abort startup: the failure is logged once and an UnavailableDatabase is returned.
func NewGraphDatabase(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) GraphDatabase {
	if !cfg.HasCredentials() {
		logger.Error("Environment variables for database authentication unavailable",
			zap.String("user_var", config.EnvNeo4jUser),
			zap.String("pass_var", config.EnvNeo4jPass))
		return NewUnavailableDatabase("neo4j credentials not configured")
	}

	db, err := NewNeo4jDatabase(cfg, logger)
	if err != nil {
		logger.Error("Failed to create Neo4j driver", zap.String("uri", cfg.URI), zap.Error(err))
		return NewUnavailableDatabase(err.Error())
	}

	verifyCtx := ctx
	if timeout := cfg.ConnectTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := db.VerifyConnectivity(verifyCtx); err != nil {
		logger.Error("Neo4j failed to load, serving in degraded mode",
			zap.String("uri", cfg.URI), zap.Error(err))
		_ = db.Close(ctx)
		return NewUnavailableDatabase(err.Error())
	}

	logger.Info("Connected to Neo4j", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return db
}
