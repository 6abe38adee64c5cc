package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/app/commands"
	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/metrics"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// Service bundles the checkout use cases exposed over the API.
type Service struct {
	uow       ports.UnitOfWork
	orders    ports.OrderRepository
	payments  ports.PaymentRepository
	guard     *AccessGuard
	idemStore ports.IdempotencyStore

	createOrder   commands.CreateOrderHandler
	createPayment commands.CreatePaymentHandler
	refund        commands.RefundPaymentHandler
	reconcile     commands.ReconcileWebhookHandler
}

// Deps carries everything the service needs; see cmd/api for wiring.
type Deps struct {
	UoW       ports.UnitOfWork
	Orders    ports.OrderRepository
	Payments  ports.PaymentRepository
	Users     ports.UserDirectory
	Gateway   ports.PaymentGateway
	Verifier  ports.WebhookVerifier
	Events    ports.EventBus
	IdemStore ports.IdempotencyStore
	Currency  string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// NewService wires command handlers with their observable decorators.
func NewService(d Deps) *Service {
	guard := NewAccessGuard(d.Users)

	createOrder := commands.NewObservableCreateOrderHandler(
		commands.NewCreateOrderCommandHandler(d.UoW, d.Events, d.Logger),
		d.Logger, d.Metrics,
	)
	createPayment := commands.NewObservableCreatePaymentHandler(
		commands.NewCreatePaymentCommandHandler(d.UoW, d.Gateway, guard, d.Currency),
		d.Logger, d.Metrics,
	)
	refund := commands.NewObservableRefundPaymentHandler(
		commands.NewRefundPaymentCommandHandler(d.UoW, d.Gateway),
		d.Logger, d.Metrics,
	)
	reconcile := commands.NewObservableReconcileWebhookHandler(
		commands.NewReconcileWebhookCommandHandler(d.UoW, d.Verifier),
		d.Logger, d.Metrics,
	)

	return &Service{
		uow:           d.UoW,
		orders:        d.Orders,
		payments:      d.Payments,
		guard:         guard,
		idemStore:     d.IdemStore,
		createOrder:   createOrder,
		createPayment: createPayment,
		refund:        refund,
		reconcile:     reconcile,
	}
}

// CreateOrder converts the user's cart into a pending order.
func (s *Service) CreateOrder(ctx context.Context, userID int64) (*domain.Order, error) {
	return s.createOrder.Handle(ctx, commands.CreateOrderCommand{UserID: userID})
}

// CreatePayment opens a payment attempt for the order.
func (s *Service) CreatePayment(ctx context.Context, requesterID, orderID int64) (*commands.CreatePaymentResult, error) {
	return s.createPayment.Handle(ctx, commands.CreatePaymentCommand{
		OrderID:          orderID,
		RequestingUserID: requesterID,
	})
}

// RefundPayment refunds a successful payment via the gateway.
func (s *Service) RefundPayment(ctx context.Context, requesterID, paymentID int64) (*domain.Payment, error) {
	return s.refund.Handle(ctx, commands.RefundPaymentCommand{
		PaymentID:        paymentID,
		RequestingUserID: requesterID,
	})
}

// HandleWebhook verifies and applies one gateway delivery.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*commands.ReconcileResult, error) {
	return s.reconcile.Handle(ctx, commands.ReconcileWebhookCommand{
		Payload:         payload,
		SignatureHeader: signatureHeader,
	})
}

// GetOrder retrieves an order visible to the requester. Canceled orders are
// reported as a client fault, matching the storefront contract.
func (s *Service) GetOrder(ctx context.Context, requesterID, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, requesterID, order.UserID); err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCanceled {
		return nil, domain.Validationf("order is canceled and cannot be accessed")
	}
	return order, nil
}

// ListOrdersInput carries raw listing parameters; status and date arrive as
// strings and are validated here.
type ListOrdersInput struct {
	Status    string
	UserID    *int64
	OrderDate string
	Page      int
	PageSize  int
}

// OrderList is a paginated listing result.
type OrderList struct {
	Orders     []domain.Order
	TotalItems int
	TotalPages int
	Page       int
	PageSize   int
}

// ListOrders returns orders for the requester. Non-admins see only their own
// orders and may not use the status, user or date filters.
func (s *Service) ListOrders(ctx context.Context, requesterID int64, input ListOrdersInput) (*OrderList, error) {
	isAdmin, err := s.guard.IsAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	filtered := input.Status != "" || input.UserID != nil || input.OrderDate != ""
	if !isAdmin && filtered {
		return nil, domain.ErrAccessDenied
	}

	filter := ports.OrderListFilter{
		UserID:   input.UserID,
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if !isAdmin {
		filter.UserID = &requesterID
	}
	if input.Status != "" {
		status, err := domain.ToOrderStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if input.OrderDate != "" {
		day, err := time.Parse("2006-01-02", input.OrderDate)
		if err != nil {
			return nil, domain.Validationf("invalid date format, use YYYY-MM-DD")
		}
		filter.CreatedOn = &day
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if filter.PageSize > 20 {
		filter.PageSize = 20
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &OrderList{
		Orders:     orders,
		TotalItems: total,
		TotalPages: (total + filter.PageSize - 1) / filter.PageSize,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}, nil
}

// CancelOrder moves a pending order to canceled.
func (s *Service) CancelOrder(ctx context.Context, requesterID, orderID int64) (*domain.Order, error) {
	return s.transitionOrder(ctx, requesterID, orderID, func(order *domain.Order) error {
		if order.Status != domain.OrderStatusPending {
			return domain.Validationf("only pending orders can be canceled")
		}
		return nil
	}, domain.OrderStatusCanceled)
}

// UpdateOrderStatus applies a manually requested status. Paid and canceled
// orders are terminal for direct mutation, and marking an order paid is
// reserved for payment reconciliation: payment-driven transitions win over
// manual updates.
func (s *Service) UpdateOrderStatus(ctx context.Context, requesterID, orderID int64, statusStr string) (*domain.Order, error) {
	status, err := domain.ToOrderStatus(statusStr)
	if err != nil {
		return nil, err
	}
	if status == domain.OrderStatusPaid {
		return nil, domain.Validationf("orders are marked paid by payment confirmation only")
	}
	return s.transitionOrder(ctx, requesterID, orderID, func(order *domain.Order) error {
		if order.IsTerminal() {
			return domain.Validationf("cannot update a paid or canceled order")
		}
		return nil
	}, status)
}

// DeleteOrder removes a pending order and its items.
func (s *Service) DeleteOrder(ctx context.Context, requesterID, orderID int64) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		order, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, requesterID, order.UserID); err != nil {
			return err
		}
		if order.Status != domain.OrderStatusPending {
			return domain.Validationf("cannot delete a paid or canceled order")
		}
		return repos.Orders.Delete(ctx, orderID)
	})
}

func (s *Service) transitionOrder(ctx context.Context, requesterID, orderID int64, check func(*domain.Order) error, target domain.OrderStatus) (*domain.Order, error) {
	var updated *domain.Order
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.RepoSet) error {
		order, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, requesterID, order.UserID); err != nil {
			return err
		}
		if err := check(order); err != nil {
			return err
		}
		if err := repos.Orders.UpdateStatus(ctx, orderID, target); err != nil {
			return err
		}
		order.Status = target
		order.UpdatedAt = time.Now().UTC()
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PaymentHistory returns the requester's payments, newest first.
func (s *Service) PaymentHistory(ctx context.Context, requesterID int64) ([]domain.Payment, error) {
	return s.payments.ListByUser(ctx, requesterID)
}

// AdminPaymentsInput carries raw admin listing filters.
type AdminPaymentsInput struct {
	UserID    *int64
	StartDate string
	EndDate   string
	Status    string
}

// AdminPayments lists payments across users with optional filters; admin only.
func (s *Service) AdminPayments(ctx context.Context, requesterID int64, input AdminPaymentsInput) ([]domain.Payment, error) {
	isAdmin, err := s.guard.IsAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, domain.ErrAccessDenied
	}

	filter := ports.PaymentSearchFilter{UserID: input.UserID}
	if input.StartDate != "" && input.EndDate != "" {
		from, err := time.Parse("2006-01-02T15:04:05", input.StartDate)
		if err != nil {
			return nil, domain.Validationf("invalid date format, use ISO format: YYYY-MM-DDTHH:MM:SS")
		}
		to, err := time.Parse("2006-01-02T15:04:05", input.EndDate)
		if err != nil {
			return nil, domain.Validationf("invalid date format, use ISO format: YYYY-MM-DDTHH:MM:SS")
		}
		filter.From = &from
		filter.To = &to
	}
	if input.Status != "" {
		status, err := domain.ToPaymentStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	return s.payments.Search(ctx, filter)
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	resp, err := s.idemStore.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	return resp, nil
}
