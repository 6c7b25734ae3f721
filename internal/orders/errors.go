package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrItemNotFound  = errors.New("order item not found")

	// ErrItemNotInOrder: an item-level operation addressed an item that
	// belongs to a different order. The coordinator never writes such a
	// state, so seeing this means the caller mixed up identifiers.
	ErrItemNotInOrder = errors.New("order item does not belong to order")

	ErrProductInUse = errors.New("product is referenced by one or more orders")

	ErrNoItems = errors.New("order must contain at least one item")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// IsNotFound reports whether err is any of the not-found kinds.
func IsNotFound(err error) bool {
	var pnf *ProductNotFoundError
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrItemNotInOrder) ||
		errors.As(err, &pnf)
}
