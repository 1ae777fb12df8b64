package dbstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/pkg/errors"
)

// Create inserts a new order record.
//
// Parameters:
// - ctx: the context for managing the request.
// - order: the order to insert.
//
// Returns:
// - error: ErrConflict if an order with the same hash already exists,
//   or another error if the database operation fails.
func (s *Store) Create(ctx context.Context, order *types.Order) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	swapState, err := json.Marshal(order.SwapState)
	if err != nil {
		return errors.Wrap(err, "failed to marshal swap state")
	}
	transactions, err := json.Marshal(order.Transactions)
	if err != nil {
		return errors.Wrap(err, "failed to marshal transactions")
	}

	_, err = db.ExecContext(ctx, `
       INSERT INTO orders (
           id,
           order_hash,
           status,
           swap_state,
           secret,
           transactions,
           message,
           error,
           created_at,
           completed_at,
           failed_at
       ) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)`,
		order.ID,
		order.OrderHash,
		order.Status,
		swapState,
		order.Secret,
		transactions,
		order.Message,
		order.Error,
		order.CreatedAt,
		order.CompletedAt,
		order.FailedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return errors.Wrapf(commonerrors.ErrConflict, "order %s already exists", order.OrderHash)
	}

	return errors.Wrap(err, "failed to insert order")
}

// FindByID returns the order with the given id.
//
// Returns:
// - *types.Order: the order.
// - error: ErrOrderNotFound if no row matches.
func (s *Store) FindByID(ctx context.Context, id string) (*types.Order, error) {
	order, err := s.findOne(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.Wrapf(commonerrors.ErrOrderNotFound, "order id %s", id)
	}
	return order, nil
}

// FindByHash returns the order with the given order hash, or nil if none
// exists. A nil result is not an error: the deploy phase uses it as the
// duplicate check.
func (s *Store) FindByHash(ctx context.Context, orderHash string) (*types.Order, error) {
	return s.findOne(ctx, `WHERE order_hash = $1`, orderHash)
}

// UpdateStatus writes a status transition. The WHERE clause excludes
// terminal rows, so an attempt to overwrite COMPLETED or FAILED affects zero
// rows and is rejected instead of silently re-saving.
//
// Returns:
// - error: ErrInvalidTransition if the order is terminal, ErrOrderNotFound if
//   it does not exist, or another error on database failure.
func (s *Store) UpdateStatus(ctx context.Context, id string, status types.OrderStatus, message, errText string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.ExecContext(ctx, `
		UPDATE orders
			SET status = $2,
			    message = COALESCE(NULLIF($3, ''), message),
			    error = COALESCE(NULLIF($4, ''), error),
			    completed_at = CASE WHEN $2 = $5 THEN NOW() ELSE completed_at END,
			    failed_at = CASE WHEN $2 = $6 THEN NOW() ELSE failed_at END
		WHERE id = $1 AND status NOT IN ($5, $6)`,
		id, status, message, errText, types.StatusCompleted, types.StatusFailed,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update order status")
	}

	return s.checkStatusWrite(ctx, db, result, id)
}

// Update rewrites the mutable portion of an order record after a state
// transition. Terminal rows are excluded by the same guard as UpdateStatus;
// the working copy entering a terminal state for the first time still
// matches, because the guard reads the stored status.
func (s *Store) Update(ctx context.Context, order *types.Order) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	transactions, err := json.Marshal(order.Transactions)
	if err != nil {
		return errors.Wrap(err, "failed to marshal transactions")
	}

	result, err := db.ExecContext(ctx, `
		UPDATE orders
			SET status = $2,
			    secret = COALESCE(NULLIF($3, ''), secret),
			    transactions = $4,
			    message = COALESCE(NULLIF($5, ''), message),
			    error = COALESCE(NULLIF($6, ''), error),
			    completed_at = $7,
			    failed_at = $8
		WHERE id = $1 AND status NOT IN ($9, $10)`,
		order.ID,
		order.Status,
		order.Secret,
		transactions,
		order.Message,
		order.Error,
		order.CompletedAt,
		order.FailedAt,
		types.StatusCompleted,
		types.StatusFailed,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	return s.checkStatusWrite(ctx, db, result, order.ID)
}

// List returns orders matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter *types.OrderFilter) ([]*types.Order, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := selectColumns + `
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR swap_state->>'userAddress' = $2)
		  AND ($3 = '' OR order_hash = $3)
		ORDER BY created_at DESC
		LIMIT CASE WHEN $4 > 0 THEN $4 ELSE 100 END OFFSET $5`

	if filter == nil {
		filter = &types.OrderFilter{}
	}

	rows, err := db.QueryContext(ctx, query,
		string(filter.Status), filter.UserAddress, filter.OrderHash, filter.Limit, filter.Offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	defer rows.Close()

	var orders []*types.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, errors.Wrap(rows.Err(), "failed to iterate orders")
}

const selectColumns = `
	SELECT id, order_hash, status, swap_state, COALESCE(secret, ''),
	       transactions, COALESCE(message, ''), COALESCE(error, ''),
	       created_at, completed_at, failed_at
	FROM orders`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) findOne(ctx context.Context, where string, arg interface{}) (*types.Order, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	row := db.QueryRowContext(ctx, selectColumns+" "+where, arg)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row rowScanner) (*types.Order, error) {
	var (
		order        types.Order
		swapState    []byte
		transactions []byte
		completedAt  sql.NullTime
		failedAt     sql.NullTime
		createdAt    time.Time
	)

	err := row.Scan(
		&order.ID,
		&order.OrderHash,
		&order.Status,
		&swapState,
		&order.Secret,
		&transactions,
		&order.Message,
		&order.Error,
		&createdAt,
		&completedAt,
		&failedAt,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := json.Unmarshal(swapState, &order.SwapState); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal swap state")
	}
	if err := json.Unmarshal(transactions, &order.Transactions); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transactions")
	}

	order.CreatedAt = createdAt
	if completedAt.Valid {
		order.CompletedAt = &completedAt.Time
	}
	if failedAt.Valid {
		order.FailedAt = &failedAt.Time
	}

	return &order, nil
}

// checkStatusWrite distinguishes "order missing" from "order terminal" when
// a guarded write affects zero rows.
func (s *Store) checkStatusWrite(ctx context.Context, db *sql.DB, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to check order existence")
	}
	if !exists {
		return errors.Wrapf(commonerrors.ErrOrderNotFound, "order id %s", id)
	}
	return errors.Wrapf(commonerrors.ErrInvalidTransition, "order %s is already terminal", id)
}

// isUniqueViolation reports whether the error is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var pqErr coder
	if errors.As(err, &pqErr) {
		return pqErr.SQLState() == "23505"
	}
	return false
}
