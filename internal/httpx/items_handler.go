package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
)

// ItemsHandler exposes the single-item mutation path. Every mutation here
// recomputes the order's total_amount, unlike the whole-order endpoints.
type ItemsHandler struct {
	Orders *orders.OrderService
	Redis  *redis.Client
	Log    zerolog.Logger
}

func (h *ItemsHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}/items", h.listItems)
	r.Post("/orders/{id}/items", h.addItem)
	r.Get("/orders/{id}/items/{itemID}", h.getItem)
	r.Put("/orders/{id}/items/{itemID}", h.updateItem)
	r.Patch("/orders/{id}/items/{itemID}", h.updateItem)
	r.Delete("/orders/{id}/items/{itemID}", h.removeItem)
}

func (h *ItemsHandler) listItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Orders.ListItems(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemsHandler) addItem(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var in orders.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if msg := validateItems([]orders.ItemInput{in}); msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Orders.AddItem(ctx, orderID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, orderID)
	writeJSON(w, http.StatusCreated, it)
}

func (h *ItemsHandler) getItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	it, err := h.Orders.GetItem(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemsHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var patch orders.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if patch.Quantity != nil && *patch.Quantity < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "item quantity must be at least 1"})
		return
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "item price cannot be negative"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Orders.UpdateItem(ctx, orderID, chi.URLParam(r, "itemID"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, orderID)
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemsHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.RemoveItem(ctx, orderID, chi.URLParam(r, "itemID")); err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(ctx, orderID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemsHandler) invalidate(ctx context.Context, orderID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, orderID)).Err()
}
