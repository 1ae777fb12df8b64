package dbstore

import (
	"context"
	"database/sql"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// Store is a Postgres-backed implementation of the OrderStore contract.
// Connections are opened per call and closed with it; the database enforces
// atomicity per order id.
type Store struct {
	dbConnStr string
}

// NewStore creates a new Store instance with the provided connection string.
//
// Parameters:
// - connStr: the database connection string.
//
// Returns:
// - *Store: a pointer to the newly created Store instance.
func NewStore(connStr string) *Store {
	return &Store{dbConnStr: connStr}
}

// schema is the orders table layout. Transaction records and swap state are
// stored as JSONB: they are written and read whole, never queried by field.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id            UUID PRIMARY KEY,
    order_hash    TEXT NOT NULL UNIQUE,
    status        TEXT NOT NULL,
    swap_state    JSONB NOT NULL,
    secret        TEXT,
    transactions  JSONB NOT NULL DEFAULT '{}'::jsonb,
    message       TEXT,
    error         TEXT,
    created_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ,
    failed_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status);
CREATE INDEX IF NOT EXISTS orders_user_idx ON orders ((swap_state->>'userAddress'));
`

// EnsureSchema creates the orders table and its indexes if missing.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the database operation fails.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, schema)
	return errors.Wrap(err, "failed to ensure orders schema")
}

// open opens a database connection for one call.
func (s *Store) open() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return nil, commonerrors.ErrDatabaseConnect
	}
	return db, nil
}
