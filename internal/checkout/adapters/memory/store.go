package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

// Store is an in-memory implementation of the checkout persistence ports,
// useful for local development and unit tests. A single mutex serializes
// transactions, and a state snapshot taken at transaction start provides
// rollback on error.
type Store struct {
	mu    sync.Mutex
	state state
	seq   int64
}

type state struct {
	carts     map[int64]domain.Cart
	orders    map[int64]domain.Order
	payments  map[int64]domain.Payment
	prices    map[int64]decimal.Decimal
	users     map[int64]domain.User
	processed map[string]struct{}
	outbox    map[int64]domain.Notification
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() state {
	return state{
		carts:     make(map[int64]domain.Cart),
		orders:    make(map[int64]domain.Order),
		payments:  make(map[int64]domain.Payment),
		prices:    make(map[int64]decimal.Decimal),
		users:     make(map[int64]domain.User),
		processed: make(map[string]struct{}),
		outbox:    make(map[int64]domain.Notification),
	}
}

func (s state) clone() state {
	next := newState()
	for id, cart := range s.carts {
		cart.Items = append([]domain.CartItem(nil), cart.Items...)
		next.carts[id] = cart
	}
	for id, order := range s.orders {
		order.Items = append([]domain.OrderItem(nil), order.Items...)
		next.orders[id] = order
	}
	for id, payment := range s.payments {
		payment.Items = append([]domain.PaymentItem(nil), payment.Items...)
		next.payments[id] = payment
	}
	for id, price := range s.prices {
		next.prices[id] = price
	}
	for id, user := range s.users {
		next.users[id] = user
	}
	for eventID := range s.processed {
		next.processed[eventID] = struct{}{}
	}
	for id, notification := range s.outbox {
		next.outbox[id] = notification
	}
	return next
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// WithinTx serializes the callback against all other transactions and rolls
// the store back to its pre-transaction state when the callback errors.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.RepoSet) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, s.repoSet()); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) repoSet() ports.RepoSet {
	return ports.RepoSet{
		Carts:    (*cartRepo)(s),
		Orders:   (*orderRepo)(s),
		Payments: (*paymentRepo)(s),
		Catalog:  (*catalogRepo)(s),
		Users:    (*userRepo)(s),
		Events:   (*eventRepo)(s),
		Outbox:   (*outboxRepo)(s),
	}
}

// Pool-style accessors mirror the postgres store so wiring code and tests can
// use either interchangeably.

func (s *Store) Carts() ports.CartRepository         { return (*cartRepo)(s) }
func (s *Store) Orders() ports.OrderRepository       { return (*orderRepo)(s) }
func (s *Store) Payments() ports.PaymentRepository   { return (*paymentRepo)(s) }
func (s *Store) Catalog() ports.CatalogPriceResolver { return (*catalogRepo)(s) }
func (s *Store) Users() ports.UserDirectory          { return (*userRepo)(s) }
func (s *Store) Outbox() ports.NotificationOutbox    { return (*outboxRepo)(s) }
func (s *Store) Events() ports.ProcessedEventStore   { return (*eventRepo)(s) }

// Seed helpers for tests.

func (s *Store) SeedUser(user domain.User) {
	s.state.users[user.ID] = user
}

func (s *Store) SeedPrice(itemID int64, price decimal.Decimal) {
	s.state.prices[itemID] = price
}

func (s *Store) SeedCart(userID int64, itemIDs ...int64) *domain.Cart {
	cart := domain.Cart{ID: s.nextID(), UserID: userID}
	for _, itemID := range itemIDs {
		cart.Items = append(cart.Items, domain.CartItem{ID: s.nextID(), CartID: cart.ID, ItemID: itemID})
	}
	s.state.carts[cart.ID] = cart
	return &cart
}

func (s *Store) SeedOrder(order domain.Order) *domain.Order {
	if order.ID == 0 {
		order.ID = s.nextID()
	}
	for i := range order.Items {
		if order.Items[i].ID == 0 {
			order.Items[i].ID = s.nextID()
		}
		order.Items[i].OrderID = order.ID
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	s.state.orders[order.ID] = order
	return &order
}

func (s *Store) SeedPayment(payment domain.Payment) *domain.Payment {
	if payment.ID == 0 {
		payment.ID = s.nextID()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.state.payments[payment.ID] = payment
	return &payment
}

// QueuedNotifications returns the current outbox contents for assertions.
func (s *Store) QueuedNotifications() []domain.Notification {
	notifications := make([]domain.Notification, 0, len(s.state.outbox))
	for _, n := range s.state.outbox {
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool { return notifications[i].ID < notifications[j].ID })
	return notifications
}

type cartRepo Store

func (r *cartRepo) GetByUserID(_ context.Context, userID int64) (*domain.Cart, error) {
	for _, cart := range r.state.carts {
		if cart.UserID == userID {
			found := cart
			found.Items = append([]domain.CartItem(nil), cart.Items...)
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *cartRepo) GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Cart, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *cartRepo) Delete(_ context.Context, cartID int64) error {
	delete(r.state.carts, cartID)
	return nil
}

type orderRepo Store

func (r *orderRepo) Create(_ context.Context, order domain.Order) (*domain.Order, error) {
	if order.Status == domain.OrderStatusPending {
		for _, existing := range r.state.orders {
			if existing.UserID == order.UserID && existing.Status == domain.OrderStatusPending {
				return nil, domain.ErrConflict
			}
		}
	}

	store := (*Store)(r)
	order.ID = store.nextID()
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = store.nextID()
		order.Items[i].OrderID = order.ID
	}
	r.state.orders[order.ID] = order

	created := order
	created.Items = append([]domain.OrderItem(nil), order.Items...)
	return &created, nil
}

func (r *orderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	order, ok := r.state.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	found := order
	found.Items = append([]domain.OrderItem(nil), order.Items...)
	return &found, nil
}

func (r *orderRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) List(_ context.Context, filter ports.OrderListFilter) ([]domain.Order, int, error) {
	var result []domain.Order
	for _, order := range r.state.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && order.UserID != *filter.UserID {
			continue
		}
		if filter.CreatedOn != nil && !sameDay(order.CreatedAt, *filter.CreatedOn) {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	total := len(result)
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	start := (page - 1) * pageSize
	if start >= total {
		return []domain.Order{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return append([]domain.Order(nil), result[start:end]...), total, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (r *orderRepo) HasPendingForUser(_ context.Context, userID int64) (bool, error) {
	for _, order := range r.state.orders {
		if order.UserID == userID && order.Status == domain.OrderStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	order, ok := r.state.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	r.state.orders[id] = order
	return nil
}

func (r *orderRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.state.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.state.orders, id)
	return nil
}

type paymentRepo Store

func (r *paymentRepo) Create(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	if payment.Status == domain.PaymentStatusPending {
		for _, existing := range r.state.payments {
			if existing.OrderID == payment.OrderID && existing.Status == domain.PaymentStatusPending {
				return nil, domain.ErrConflict
			}
		}
	}

	store := (*Store)(r)
	payment.ID = store.nextID()
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	for i := range payment.Items {
		payment.Items[i].ID = store.nextID()
		payment.Items[i].PaymentID = payment.ID
	}
	r.state.payments[payment.ID] = payment

	created := payment
	created.Items = append([]domain.PaymentItem(nil), payment.Items...)
	return &created, nil
}

func (r *paymentRepo) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	payment, ok := r.state.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	found := payment
	found.Items = append([]domain.PaymentItem(nil), payment.Items...)
	return &found, nil
}

func (r *paymentRepo) GetByIDForUserForUpdate(ctx context.Context, id, userID int64) (*domain.Payment, error) {
	payment, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (r *paymentRepo) GetByExternalIDForUpdate(_ context.Context, externalID string) (*domain.Payment, error) {
	for _, payment := range r.state.payments {
		if payment.ExternalPaymentID == externalID && externalID != "" {
			found := payment
			found.Items = append([]domain.PaymentItem(nil), payment.Items...)
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *paymentRepo) SetExternalID(_ context.Context, id int64, externalID string) error {
	payment, ok := r.state.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if payment.ExternalPaymentID != "" {
		return domain.ErrConflict
	}
	payment.ExternalPaymentID = externalID
	payment.UpdatedAt = time.Now().UTC()
	r.state.payments[id] = payment
	return nil
}

func (r *paymentRepo) UpdateStatus(_ context.Context, id int64, status domain.PaymentStatus) error {
	payment, ok := r.state.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()
	r.state.payments[id] = payment
	return nil
}

func (r *paymentRepo) ListByUser(_ context.Context, userID int64) ([]domain.Payment, error) {
	var result []domain.Payment
	for _, payment := range r.state.payments {
		if payment.UserID == userID {
			result = append(result, payment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *paymentRepo) Search(_ context.Context, filter ports.PaymentSearchFilter) ([]domain.Payment, error) {
	var result []domain.Payment
	for _, payment := range r.state.payments {
		if filter.UserID != nil && payment.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && payment.Status != *filter.Status {
			continue
		}
		if filter.From != nil && payment.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && payment.CreatedAt.After(*filter.To) {
			continue
		}
		result = append(result, payment)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type catalogRepo Store

func (r *catalogRepo) ResolvePrices(_ context.Context, itemIDs []int64) (map[int64]decimal.Decimal, error) {
	prices := make(map[int64]decimal.Decimal, len(itemIDs))
	for _, itemID := range itemIDs {
		if price, ok := r.state.prices[itemID]; ok {
			prices[itemID] = price
		}
	}
	return prices, nil
}

type userRepo Store

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.state.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	found := user
	return &found, nil
}

type eventRepo Store

func (r *eventRepo) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	if _, seen := r.state.processed[eventID]; seen {
		return false, nil
	}
	r.state.processed[eventID] = struct{}{}
	return true, nil
}

type outboxRepo Store

func (r *outboxRepo) Enqueue(_ context.Context, n domain.Notification) error {
	for _, existing := range r.state.outbox {
		if existing.PaymentID == n.PaymentID && existing.Kind == n.Kind {
			return nil
		}
	}
	store := (*Store)(r)
	n.ID = store.nextID()
	n.Status = domain.NotificationStatusQueued
	n.CreatedAt = time.Now().UTC()
	r.state.outbox[n.ID] = n
	return nil
}

func (r *outboxRepo) ListQueued(_ context.Context, limit int) ([]domain.Notification, error) {
	var queued []domain.Notification
	for _, n := range r.state.outbox {
		if n.Status == domain.NotificationStatusQueued {
			queued = append(queued, n)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].CreatedAt.Before(queued[j].CreatedAt) })
	if limit > 0 && len(queued) > limit {
		queued = queued[:limit]
	}
	return queued, nil
}

func (r *outboxRepo) MarkSent(_ context.Context, id int64) error {
	n, ok := r.state.outbox[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	n.Status = domain.NotificationStatusSent
	n.SentAt = &now
	r.state.outbox[id] = n
	return nil
}
