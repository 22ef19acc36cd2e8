package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tamales-preorder/internal/domain"
)

const (
	insertOrder = `INSERT INTO orders (user_email, user_name, user_phone, items, grand_total, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	// remaining never goes negative: an oversold line matches zero rows.
	decrementInventory = `UPDATE inventory SET remaining = remaining - $1 WHERE tamale_id = $2 AND remaining >= $1`

	inventoryExists = `SELECT EXISTS (SELECT 1 FROM inventory WHERE tamale_id = $1)`

	selectOrdersByEmail = `SELECT id, user_email, user_name, user_phone, items, grand_total, created_at
FROM orders WHERE user_email = $1 ORDER BY created_at DESC, id DESC`

	deleteOwnedOrder = `DELETE FROM orders WHERE id = $1 AND user_email = $2`
)

// OrderRepo provides typed PostgreSQL operations for the orders table.
type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create inserts o and, when trackInventory is set, decrements inventory for
// each line in the same transaction. Items with no inventory row are not
// tracked. A line that would oversell rolls the whole order back with
// domain.ErrConflict.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order, trackInventory bool) (int64, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return 0, fmt.Errorf("marshal items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx)

	var id int64
	err = tx.QueryRowContext(ctx, insertOrder,
		o.UserEmail, o.UserName, o.UserPhone, string(items), o.GrandTotal, o.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	if trackInventory {
		ids, qty := domain.QuantitiesByItem(o.Items)
		for _, itemID := range ids {
			if err := decrement(ctx, tx, itemID, qty[itemID]); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit order: %w", err)
	}
	return id, nil
}

func decrement(ctx context.Context, tx *sql.Tx, itemID int64, qty int) error {
	res, err := tx.ExecContext(ctx, decrementInventory, qty, itemID)
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var tracked bool
	if err := tx.QueryRowContext(ctx, inventoryExists, itemID).Scan(&tracked); err != nil {
		return fmt.Errorf("check inventory: %w", err)
	}
	if tracked {
		return domain.Conflict(fmt.Sprintf("insufficient inventory for item %d", itemID))
	}
	return nil
}

// ListByEmail returns the user's orders newest first with items decoded.
func (r *OrderRepo) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrdersByEmail, email)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var (
			o     domain.Order
			items string
		)
		if err := rows.Scan(&o.ID, &o.UserEmail, &o.UserName, &o.UserPhone, &items, &o.GrandTotal, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, fmt.Errorf("decode items of order %d: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// DeleteOwned removes the order only when it belongs to email.
func (r *OrderRepo) DeleteOwned(ctx context.Context, id int64, email string) error {
	res, err := r.db.ExecContext(ctx, deleteOwnedOrder, id, email)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	err = expectAffected(res, "order not found")
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("Order not found or unauthorized")
	}
	return err
}
