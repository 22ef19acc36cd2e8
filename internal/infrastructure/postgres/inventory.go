package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tamales-preorder/internal/domain"
)

const selectInventory = `SELECT tamale_id, remaining FROM inventory`

// InventoryRepo reads the optional inventory table.
type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

func (r *InventoryRepo) All(ctx context.Context) (domain.Inventory, error) {
	rows, err := r.db.QueryContext(ctx, selectInventory)
	if err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	defer rows.Close()

	inv := domain.Inventory{}
	for rows.Next() {
		var (
			id        int64
			remaining int
		)
		if err := rows.Scan(&id, &remaining); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		inv[id] = remaining
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return inv, nil
}
