package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-order-inventory/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errStatus(err), map[string]string{"error": err.Error()})
}

// errStatus maps the core's failure taxonomy onto HTTP. Insufficient stock
// and in-use products are conflicts; persistence failures stay generic.
func errStatus(err error) int {
	var ins *orders.InsufficientStockError
	switch {
	case errors.As(err, &ins) || errors.Is(err, orders.ErrProductInUse):
		return http.StatusConflict
	case orders.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrNoItems):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
