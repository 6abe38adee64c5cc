package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// CreateOrderCommand converts the requesting user's cart into a pending order.
type CreateOrderCommand struct {
	UserID int64
}

func (c CreateOrderCommand) Validate() error {
	if c.UserID <= 0 {
		return domain.Validationf("user_id is required")
	}
	return nil
}

type CreateOrderHandler interface {
	Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
}

type CreateOrderCommandHandler struct {
	uow    ports.UnitOfWork
	events ports.EventBus
	logger *slog.Logger
}

func NewCreateOrderCommandHandler(uow ports.UnitOfWork, events ports.EventBus, logger *slog.Logger) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{
		uow:    uow,
		events: events,
		logger: logger,
	}
}

// Handle runs the cart-to-order conversion in one transaction: the existing
// pending-order check, the live price resolution, the order insert and the
// cart deletion either all commit or none do. The cart row is locked for the
// duration, and the partial unique index on pending orders backs the check
// against concurrent requests racing past it.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var created *domain.Order

	err := h.uow.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		pending, err := repos.Orders.HasPendingForUser(ctx, cmd.UserID)
		if err != nil {
			return fmt.Errorf("check pending order: %w", err)
		}
		if pending {
			return fmt.Errorf("%w: you have an unpaid order", domain.ErrConflict)
		}

		cart, err := repos.Carts.GetByUserIDForUpdate(ctx, cmd.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Validationf("your cart is empty")
			}
			return fmt.Errorf("fetch cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return domain.Validationf("your cart is empty")
		}

		prices, err := repos.Catalog.ResolvePrices(ctx, cart.ItemIDs())
		if err != nil {
			return fmt.Errorf("resolve prices: %w", err)
		}
		if len(prices) == 0 {
			return domain.Validationf("items in your cart are no longer available")
		}

		// Items that vanished from the catalog since they were added to the
		// cart are skipped; the order is priced from what is still for sale.
		var items []domain.OrderItem
		for _, cartItem := range cart.Items {
			price, ok := prices[cartItem.ItemID]
			if !ok {
				continue
			}
			items = append(items, domain.OrderItem{
				ItemID:       cartItem.ItemID,
				PriceAtOrder: price,
			})
		}

		order := domain.Order{
			UserID:      cmd.UserID,
			Status:      domain.OrderStatusPending,
			TotalAmount: domain.OrderTotal(items),
			Items:       items,
		}
		if err := order.Validate(); err != nil {
			return domain.Validationf("%v", err)
		}

		created, err = repos.Orders.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := repos.Carts.Delete(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.events.PublishOrderCreated(ctx, created.ID); err != nil {
		h.logger.WarnContext(ctx, "order created but event publish failed",
			"order_id", created.ID,
			"error", err,
		)
	}

	return created, nil
}
