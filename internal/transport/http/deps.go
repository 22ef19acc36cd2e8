package http

import (
	"context"

	"github.com/tamales-preorder/internal/domain"
	"github.com/tamales-preorder/internal/infrastructure/mail"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Upsert keeps verified and created_at of an existing row.
	Upsert(ctx context.Context, u *domain.User) error
	UpdateVerification(ctx context.Context, email string, code, codeCreatedAt *string) error
	// MarkVerified matches and writes in one statement.
	MarkVerified(ctx context.Context, email, code string) (*domain.User, error)
}

// OrderRepository is the minimal interface the router requires from an order store.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order, trackInventory bool) (int64, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	DeleteOwned(ctx context.Context, id int64, email string) error
}

// InventoryRepository is the minimal interface the router requires from an inventory store.
type InventoryRepository interface {
	All(ctx context.Context) (domain.Inventory, error)
}

// SMSSender texts the shop owner.
type SMSSender interface {
	SendSMS(ctx context.Context, message string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      UserRepository
	OrderRepo     OrderRepository
	InventoryRepo InventoryRepository
	Mailer        mail.Sender
	// SMSSender is optional.
	SMSSender SMSSender
}
