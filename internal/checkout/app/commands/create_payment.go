package commands

import (
	"context"
	"fmt"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// CreatePaymentCommand opens a payment attempt for an order against the
// external gateway.
type CreatePaymentCommand struct {
	OrderID          int64
	RequestingUserID int64
}

func (c CreatePaymentCommand) Validate() error {
	if c.OrderID <= 0 {
		return domain.Validationf("order_id is required")
	}
	if c.RequestingUserID <= 0 {
		return domain.Validationf("user_id is required")
	}
	return nil
}

// CreatePaymentResult couples the persisted payment with the client-usable
// confirmation token returned by the gateway.
type CreatePaymentResult struct {
	Payment      *domain.Payment
	ClientSecret string
}

type CreatePaymentHandler interface {
	Handle(ctx context.Context, cmd CreatePaymentCommand) (*CreatePaymentResult, error)
}

// Authorizer decides whether a requester may act on a resource owned by
// another user.
type Authorizer interface {
	Authorize(ctx context.Context, requesterID, ownerID int64) error
}

type CreatePaymentCommandHandler struct {
	uow      ports.UnitOfWork
	gateway  ports.PaymentGateway
	guard    Authorizer
	currency string
}

func NewCreatePaymentCommandHandler(uow ports.UnitOfWork, gateway ports.PaymentGateway, guard Authorizer, currency string) *CreatePaymentCommandHandler {
	return &CreatePaymentCommandHandler{
		uow:      uow,
		gateway:  gateway,
		guard:    guard,
		currency: currency,
	}
}

// Handle creates the payment row, its item ledger and the gateway intent
// inside one transaction. The gateway call happens before commit: if the
// gateway fails or times out, the rollback leaves no orphan payment; if the
// insert conflicts with an existing pending payment for the order, the
// gateway is never called.
func (h *CreatePaymentCommandHandler) Handle(ctx context.Context, cmd CreatePaymentCommand) (*CreatePaymentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result CreatePaymentResult

	err := h.uow.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		order, err := repos.Orders.GetByIDForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("fetch order: %w", err)
		}

		if err := h.guard.Authorize(ctx, cmd.RequestingUserID, order.UserID); err != nil {
			return err
		}

		if order.Status != domain.OrderStatusPending {
			return domain.Validationf("order %d is %s and cannot be paid", order.ID, order.Status)
		}
		if len(order.Items) == 0 {
			return domain.Validationf("no items in order")
		}

		items := make([]domain.PaymentItem, 0, len(order.Items))
		for _, orderItem := range order.Items {
			items = append(items, domain.PaymentItem{
				OrderItemID:    orderItem.ID,
				PriceAtPayment: orderItem.PriceAtOrder,
			})
		}

		payment := domain.Payment{
			UserID:  order.UserID,
			OrderID: order.ID,
			Status:  domain.PaymentStatusPending,
			Amount:  order.TotalAmount,
			Items:   items,
		}

		created, err := repos.Payments.Create(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		intent, err := h.gateway.CreateIntent(ctx, order.TotalAmount, h.currency)
		if err != nil {
			return err
		}

		if err := repos.Payments.SetExternalID(ctx, created.ID, intent.ID); err != nil {
			return fmt.Errorf("record intent id: %w", err)
		}
		created.ExternalPaymentID = intent.ID

		result = CreatePaymentResult{
			Payment:      created,
			ClientSecret: intent.ClientSecret,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
