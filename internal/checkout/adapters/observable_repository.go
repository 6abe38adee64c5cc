package adapters

import (
	"context"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/ivmarchuk/filmstore/internal/database"
	"github.com/ivmarchuk/filmstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableOrderRepository wraps an order repository with tracing and query
// duration metrics.
type ObservableOrderRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableOrderRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableOrderRepository {
	return &ObservableOrderRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.Create")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("user.id", order.UserID),
		attribute.String("operation", "create"),
	)

	start := time.Now()
	created, err := r.repo.Create(ctx, order)
	r.metrics.RecordQuery(ctx, "create_order", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int64("order.id", created.ID))
	telemetry.SetSpanSuccess(span)
	return created, nil
}

func (r *ObservableOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.GetByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("operation", "get_by_id"),
	)

	start := time.Now()
	order, err := r.repo.GetByID(ctx, id)
	r.metrics.RecordQuery(ctx, "get_order_by_id", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return order, nil
}

func (r *ObservableOrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.GetByIDForUpdate")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("operation", "get_by_id_for_update"),
	)

	start := time.Now()
	order, err := r.repo.GetByIDForUpdate(ctx, id)
	r.metrics.RecordQuery(ctx, "get_order_by_id_for_update", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return order, nil
}

func (r *ObservableOrderRepository) List(ctx context.Context, filter ports.OrderListFilter) ([]domain.Order, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.List")
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("operation", "list"),
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.UserID != nil {
		attrs = append(attrs, attribute.Int64("filter.user_id", *filter.UserID))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	orders, total, err := r.repo.List(ctx, filter)
	r.metrics.RecordQuery(ctx, "list_orders", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, 0, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(orders)))
	telemetry.SetSpanSuccess(span)
	return orders, total, nil
}

func (r *ObservableOrderRepository) HasPendingForUser(ctx context.Context, userID int64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.HasPendingForUser")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("user.id", userID),
		attribute.String("operation", "has_pending_for_user"),
	)

	start := time.Now()
	pending, err := r.repo.HasPendingForUser(ctx, userID)
	r.metrics.RecordQuery(ctx, "has_pending_order_for_user", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return false, err
	}

	telemetry.SetSpanSuccess(span)
	return pending, nil
}

func (r *ObservableOrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(status)),
		attribute.String("operation", "update_status"),
	)

	start := time.Now()
	err := r.repo.UpdateStatus(ctx, id, status)
	r.metrics.RecordQuery(ctx, "update_order_status", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableOrderRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.Delete")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", id),
		attribute.String("operation", "delete"),
	)

	start := time.Now()
	err := r.repo.Delete(ctx, id)
	r.metrics.RecordQuery(ctx, "delete_order", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

// ObservablePaymentRepository wraps a payment repository with tracing and
// query duration metrics.
type ObservablePaymentRepository struct {
	repo    ports.PaymentRepository
	metrics *database.Metrics
}

func NewObservablePaymentRepository(repo ports.PaymentRepository, metrics *database.Metrics) *ObservablePaymentRepository {
	return &ObservablePaymentRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservablePaymentRepository) Create(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.Create")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("order.id", payment.OrderID),
		attribute.String("operation", "create"),
	)

	start := time.Now()
	created, err := r.repo.Create(ctx, payment)
	r.metrics.RecordQuery(ctx, "create_payment", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int64("payment.id", created.ID))
	telemetry.SetSpanSuccess(span)
	return created, nil
}

func (r *ObservablePaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.GetByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", id),
		attribute.String("operation", "get_by_id"),
	)

	start := time.Now()
	payment, err := r.repo.GetByID(ctx, id)
	r.metrics.RecordQuery(ctx, "get_payment_by_id", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return payment, nil
}

func (r *ObservablePaymentRepository) GetByIDForUserForUpdate(ctx context.Context, id, userID int64) (*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.GetByIDForUserForUpdate")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", id),
		attribute.Int64("user.id", userID),
		attribute.String("operation", "get_by_id_for_user_for_update"),
	)

	start := time.Now()
	payment, err := r.repo.GetByIDForUserForUpdate(ctx, id, userID)
	r.metrics.RecordQuery(ctx, "get_payment_by_id_for_user", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return payment, nil
}

func (r *ObservablePaymentRepository) GetByExternalIDForUpdate(ctx context.Context, externalID string) (*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.GetByExternalIDForUpdate")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("payment.external_id", externalID),
		attribute.String("operation", "get_by_external_id_for_update"),
	)

	start := time.Now()
	payment, err := r.repo.GetByExternalIDForUpdate(ctx, externalID)
	r.metrics.RecordQuery(ctx, "get_payment_by_external_id", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return payment, nil
}

func (r *ObservablePaymentRepository) SetExternalID(ctx context.Context, id int64, externalID string) error {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.SetExternalID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", id),
		attribute.String("payment.external_id", externalID),
		attribute.String("operation", "set_external_id"),
	)

	start := time.Now()
	err := r.repo.SetExternalID(ctx, id, externalID)
	r.metrics.RecordQuery(ctx, "set_payment_external_id", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservablePaymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.UpdateStatus")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("payment.id", id),
		attribute.String("payment.status", string(status)),
		attribute.String("operation", "update_status"),
	)

	start := time.Now()
	err := r.repo.UpdateStatus(ctx, id, status)
	r.metrics.RecordQuery(ctx, "update_payment_status", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservablePaymentRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.ListByUser")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.Int64("user.id", userID),
		attribute.String("operation", "list_by_user"),
	)

	start := time.Now()
	payments, err := r.repo.ListByUser(ctx, userID)
	r.metrics.RecordQuery(ctx, "list_payments_by_user", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(payments)))
	telemetry.SetSpanSuccess(span)
	return payments, nil
}

func (r *ObservablePaymentRepository) Search(ctx context.Context, filter ports.PaymentSearchFilter) ([]domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentRepository.Search")
	defer span.End()

	attrs := []attribute.KeyValue{attribute.String("operation", "search")}
	if filter.UserID != nil {
		attrs = append(attrs, attribute.Int64("filter.user_id", *filter.UserID))
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	payments, err := r.repo.Search(ctx, filter)
	r.metrics.RecordQuery(ctx, "search_payments", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(payments)))
	telemetry.SetSpanSuccess(span)
	return payments, nil
}
