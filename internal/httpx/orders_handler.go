package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
)

// Publisher is what handlers need from a kafka producer; nil disables
// event publishing (tests).
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Orders *orders.OrderService
	Redis  *redis.Client

	PubCreated Publisher
	PubUpdated Publisher
	PubDeleted Publisher

	Service string
	Log     zerolog.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Patch("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var f orders.OrderFilter
	q := r.URL.Query()
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date"})
			return
		}
		f.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date"})
			return
		}
		f.EndDate = &t
	}
	f.Search = q.Get("search")
	if v := q.Get("status"); v != "" {
		st := orders.Status(v)
		if !st.Known() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "unknown status"})
			return
		}
		f.Status = st
	}
	page, _ := strconv.Atoi(q.Get("page"))

	out, err := h.Orders.ListOrders(ctx, f, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if msg := validateCreate(in); msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(h.PubCreated, orders.EventOrderCreated, o.ID, r.Header.Get("X-Request-Id"),
		orders.OrderCreatedPayload{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Items:       orders.ItemQuantities(o.Items),
			TotalAmount: o.TotalAmount,
		})

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB remains the source of truth
	key := fmt.Sprintf(redisx.KeyOrderCache, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		if b, err := json.Marshal(o); err == nil {
			_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var in orders.UpdateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if msg := validateUpdate(in); msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateOrder(ctx, orderID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, orderID)

	h.publish(h.PubUpdated, orders.EventOrderUpdated, o.ID, r.Header.Get("X-Request-Id"),
		orders.OrderUpdatedPayload{
			OrderID:       o.ID,
			ItemsReplaced: in.Items != nil,
			Items:         orders.ItemQuantities(o.Items),
			Status:        o.Status,
		})

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// capture items before they cascade away, for the event payload
	items, _ := h.Orders.ListItems(ctx, orderID)

	if err := h.Orders.DeleteOrder(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, orderID)

	h.publish(h.PubDeleted, orders.EventOrderDeleted, orderID, r.Header.Get("X-Request-Id"),
		orders.OrderDeletedPayload{OrderID: orderID, Items: orders.ItemQuantities(items)})

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) invalidate(ctx context.Context, orderID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, orderID)).Err()
}

func (h *OrdersHandler) publish(p Publisher, eventType, orderID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func validateCreate(in orders.CreateOrderInput) string {
	if in.UserID == "" {
		return "user_id is required"
	}
	if in.TotalAmount.IsNegative() {
		return "total_amount cannot be negative"
	}
	if in.Status != "" && !in.Status.Known() {
		return "unknown status"
	}
	if len(in.Items) == 0 {
		return "order must contain at least one item"
	}
	return validateItems(in.Items)
}

func validateUpdate(in orders.UpdateOrderInput) string {
	if in.TotalAmount != nil && in.TotalAmount.IsNegative() {
		return "total_amount cannot be negative"
	}
	if in.Status != nil && !in.Status.Known() {
		return "unknown status"
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return "items cannot be empty"
		}
		return validateItems(in.Items)
	}
	return ""
}

func validateItems(items []orders.ItemInput) string {
	for _, it := range items {
		if it.ProductID == "" {
			return "item product_id is required"
		}
		if it.Quantity < 1 {
			return "item quantity must be at least 1"
		}
		if it.Price.IsNegative() {
			return "item price cannot be negative"
		}
	}
	return ""
}
