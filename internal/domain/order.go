package domain

import "time"

// LineItem is one product line of an order. ID matches inventory.tamale_id.
type LineItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name" validate:"required"`
	Qty   int    `json:"qty" validate:"min=1"`
	Total Money  `json:"total"`
}

// Order is immutable once created; it can only be deleted by its owner.
type Order struct {
	ID         int64      `json:"id"`
	UserEmail  string     `json:"user_email"`
	UserName   *string    `json:"user_name"`
	UserPhone  *string    `json:"user_phone"`
	Items      []LineItem `json:"items"`
	GrandTotal Money      `json:"grand_total"`
	CreatedAt  time.Time  `json:"created_at"`
}

type CreateOrderRequest struct {
	UserEmail  string     `json:"user_email" validate:"required"`
	UserName   *string    `json:"user_name"`
	UserPhone  *string    `json:"user_phone"`
	Items      []LineItem `json:"items" validate:"required,min=1,dive"`
	GrandTotal *Money     `json:"grand_total" validate:"required"`
	CreatedAt  *time.Time `json:"created_at"`
}

type DeleteOrderRequest struct {
	OrderID   int64  `json:"orderId" validate:"required"`
	UserEmail string `json:"userEmail" validate:"required"`
}

// Inventory maps tamale_id to the remaining count.
type Inventory map[int64]int

// QuantitiesByItem sums quantities per item id, preserving first-seen order.
func QuantitiesByItem(items []LineItem) ([]int64, map[int64]int) {
	var ids []int64
	qty := make(map[int64]int, len(items))
	for _, it := range items {
		if _, seen := qty[it.ID]; !seen {
			ids = append(ids, it.ID)
		}
		qty[it.ID] += it.Qty
	}
	return ids, qty
}
