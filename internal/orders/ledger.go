package orders

import (
	"context"
	"fmt"
)

// StockLedger is the single writer path for product stock. All stock
// movement in the system goes through Decrease/Increase; nothing else may
// touch the stock_quantity column.
//
// Both operations expect a transaction-scoped Store so that a sequence of
// adjustments rolls back together with the order/item writes that caused
// them. The lock taken by LockStock serializes adjustments per product:
// the check below is always made against the latest committed value, never
// a stale snapshot, which is what keeps stock from going negative under
// concurrent orders.
type StockLedger struct{}

func (StockLedger) Decrease(ctx context.Context, tx Store, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrease stock: quantity must be positive, got %d", qty)
	}
	available, err := tx.LockStock(ctx, productID)
	if err != nil {
		return err
	}
	if available < qty {
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
	}
	return tx.SetStock(ctx, productID, available-qty)
}

// Increase is unconditional: restoring previously reserved stock must not
// fail on any upper bound.
func (StockLedger) Increase(ctx context.Context, tx Store, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("increase stock: quantity must be positive, got %d", qty)
	}
	current, err := tx.LockStock(ctx, productID)
	if err != nil {
		return err
	}
	return tx.SetStock(ctx, productID, current+qty)
}
