package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamales-preorder/internal/domain"
	"github.com/tamales-preorder/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateOrderRequest) (int64, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	Delete(ctx context.Context, req domain.DeleteOrderRequest) error
	Inventory(ctx context.Context) domain.Inventory
}

type orderStore interface {
	Create(ctx context.Context, o *domain.Order, trackInventory bool) (int64, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	DeleteOwned(ctx context.Context, id int64, email string) error
}

type inventoryStore interface {
	All(ctx context.Context) (domain.Inventory, error)
}

type service struct {
	repo           orderStore
	inventoryRepo  inventoryStore
	trackInventory bool
	now            func() time.Time
}

type ServiceDeps struct {
	OrderRepo      orderStore
	InventoryRepo  inventoryStore
	TrackInventory bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:           deps.OrderRepo,
		inventoryRepo:  deps.InventoryRepo,
		trackInventory: deps.TrackInventory,
		now:            time.Now,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrderRequest) (int64, error) {
	email := domain.NormalizeEmail(req.UserEmail)
	if email == "" || len(req.Items) == 0 || req.GrandTotal == nil {
		return 0, domain.BadRequest("Missing order fields")
	}
	req.UserEmail = email
	if err := validate.Struct(req); err != nil {
		return 0, domain.BadRequest("Invalid order items: " + err.Error())
	}
	if req.GrandTotal.IsNegative() {
		return 0, domain.BadRequest("Invalid order total")
	}

	createdAt := s.now().UTC()
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt.UTC()
	}
	id, err := s.repo.Create(ctx, &domain.Order{
		UserEmail:  email,
		UserName:   req.UserName,
		UserPhone:  req.UserPhone,
		Items:      req.Items,
		GrandTotal: *req.GrandTotal,
		CreatedAt:  createdAt,
	}, s.trackInventory)
	if err != nil {
		return 0, err
	}
	slog.Info("order created", "order_id", id, "items", len(req.Items))
	return id, nil
}

func (s *service) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.BadRequest("Email parameter required")
	}
	return s.repo.ListByEmail(ctx, email)
}

func (s *service) Delete(ctx context.Context, req domain.DeleteOrderRequest) error {
	email := domain.NormalizeEmail(req.UserEmail)
	if req.OrderID == 0 || email == "" {
		return domain.BadRequest("Order ID and email required")
	}
	return s.repo.DeleteOwned(ctx, req.OrderID, email)
}

// Inventory never fails: a store error is logged and reported as an empty
// inventory so the storefront still renders.
func (s *service) Inventory(ctx context.Context) domain.Inventory {
	inv, err := s.inventoryRepo.All(ctx)
	if err != nil {
		slog.Warn("inventory unavailable", "err", err)
		return domain.Inventory{}
	}
	return inv
}
