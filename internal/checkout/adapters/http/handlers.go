package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivmarchuk/filmstore/internal/checkout/app"
	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

// Handler exposes the checkout HTTP surface.
type Handler struct {
	service *app.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the checkout routes to the router. The webhook endpoint is
// authenticated by signature, not by user identity, so it sits outside the
// user-auth group.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", h.stripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.createOrder)
				r.Get("/", h.listOrders)
				r.Get("/{orderID}", h.getOrder)
				r.Put("/{orderID}", h.updateOrderStatus)
				r.Put("/{orderID}/cancel", h.cancelOrder)
				r.Delete("/{orderID}", h.deleteOrder)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", h.createPayment)
				r.Post("/{paymentID}/refund", h.refundPayment)
				r.Get("/history", h.paymentHistory)
				r.Get("/admin", h.adminPayments)
			})
		})
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}
	if replayed := h.replayStored(w, r, idemKey); replayed {
		return
	}

	order, err := h.service.CreateOrder(ctx, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.respondStored(w, r, idemKey, http.StatusCreated, map[string]any{"order": order}, order.ID)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID", "order")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), userIDFrom(r.Context()), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := app.ListOrdersInput{
		Status:    query.Get("status"),
		OrderDate: query.Get("order_date"),
	}
	if userParam := query.Get("user_id"); userParam != "" {
		userID, err := strconv.ParseInt(userParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		input.UserID = &userID
	}
	if pageParam := query.Get("page"); pageParam != "" {
		if page, err := strconv.Atoi(pageParam); err == nil {
			input.Page = page
		}
	}
	if sizeParam := query.Get("page_size"); sizeParam != "" {
		if size, err := strconv.Atoi(sizeParam); err == nil {
			input.PageSize = size
		}
	}

	list, err := h.service.ListOrders(r.Context(), userIDFrom(r.Context()), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":      list.Orders,
		"total_items": list.TotalItems,
		"total_pages": list.TotalPages,
		"page":        list.Page,
		"page_size":   list.PageSize,
	})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID", "order")
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), userIDFrom(r.Context()), orderID, payload.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID", "order")
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), userIDFrom(r.Context()), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID", "order")
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), userIDFrom(r.Context()), orderID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFrom(ctx)

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}
	if replayed := h.replayStored(w, r, idemKey); replayed {
		return
	}

	var payload struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := h.service.CreatePayment(ctx, userID, payload.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	body := map[string]any{
		"payment":       result.Payment,
		"client_secret": result.ClientSecret,
	}
	h.respondStored(w, r, idemKey, http.StatusCreated, body, result.Payment.ID)
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "paymentID", "payment")
	if !ok {
		return
	}

	payment, err := h.service.RefundPayment(r.Context(), userIDFrom(r.Context()), paymentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.PaymentHistory(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) adminPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := app.AdminPaymentsInput{
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
		Status:    query.Get("status"),
	}
	if userParam := query.Get("user_id"); userParam != "" {
		userID, err := strconv.ParseInt(userParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		input.UserID = &userID
	}

	payments, err := h.service.AdminPayments(r.Context(), userIDFrom(r.Context()), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read payload")
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": result.EventID,
		"type":     result.EventType,
		"outcome":  result.Outcome,
	})
}

// replayStored serves a previously stored response for the key, reporting
// whether it did so.
func (h *Handler) replayStored(w http.ResponseWriter, r *http.Request, idemKey string) bool {
	stored, err := h.service.GetIdempotentResponse(r.Context(), idemKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return true
	}
	if stored == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(stored.StatusCode)
	_, _ = w.Write(stored.Body)
	return true
}

func (h *Handler) respondStored(w http.ResponseWriter, r *http.Request, idemKey string, status int, payload any, resourceID int64) {
	body, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	stored := ports.StoredResponse{
		StatusCode: status,
		Body:       body,
		ResourceID: resourceID,
	}
	if err := h.service.SaveIdempotentResponse(r.Context(), idemKey, stored); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func pathID(w http.ResponseWriter, r *http.Request, param, resource string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, resource+" not found")
		return 0, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	var gatewayErr *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &gatewayErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
