package graphdb

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// UnavailableDatabase stands in for the store when it could not be reached at startup.
// Every query reports ErrStoreUnavailable so callers can tell "no data" from "no store".
type UnavailableDatabase struct {
	reason string
}

func NewUnavailableDatabase(reason string) *UnavailableDatabase {
	return &UnavailableDatabase{reason: reason}
}

// Reason is the startup failure that put the client in degraded mode
func (db *UnavailableDatabase) Reason() string {
	return db.reason
}

func (db *UnavailableDatabase) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	return nil, &StoreError{Op: "execute read", Err: errors.New(db.reason)}
}

func (db *UnavailableDatabase) VerifyConnectivity(ctx context.Context) error {
	return &StoreError{Op: "verify connectivity", Err: errors.New(db.reason)}
}

func (db *UnavailableDatabase) Available() bool {
	return false
}

func (db *UnavailableDatabase) Close(ctx context.Context) error {
	return nil
}
