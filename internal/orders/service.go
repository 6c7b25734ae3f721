package orders

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderService makes order lifecycle operations atomic with respect to
// their stock effects. Each operation is one transaction: either every
// order/item write and every stock adjustment lands, or none do.
type OrderService struct {
	Store  TxStore
	Ledger StockLedger
	Log    zerolog.Logger
}

// CreateOrder inserts the order plus one item per input entry, reserving
// stock for each. TotalAmount is stored exactly as supplied by the caller;
// it is NOT recomputed from the items here (only the single-item mutation
// path in items.go recomputes totals — kept asymmetric on purpose).
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}

	now := time.Now().UTC()
	o := &Order{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Description: in.Description,
		TotalAmount: in.TotalAmount,
		OrderDate:   now,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.OrderDate != nil {
		o.OrderDate = *in.OrderDate
	}
	if in.Status != "" {
		o.Status = in.Status
	}

	err := s.Store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.GetUser(ctx, in.UserID); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		return s.addItems(ctx, tx, o.ID, in.Items)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info().Str("order_id", o.ID).Str("user_id", o.UserID).
		Int("items", len(in.Items)).Msg("order created")
	return s.loadOrder(ctx, o.ID)
}

// UpdateOrder merges the scalar patch into the order. When in.Items is
// non-nil the item set is fully replaced: stock for every existing item is
// restored, all items are deleted, then the new list is reserved and
// inserted. Any failure rolls the whole sequence back, leaving the order
// exactly as it was.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID string, in UpdateOrderInput) (*Order, error) {
	err := s.Store.WithinTx(ctx, func(tx Store) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if in.Description != nil {
			o.Description = *in.Description
		}
		if in.TotalAmount != nil {
			o.TotalAmount = *in.TotalAmount
		}
		if in.OrderDate != nil {
			o.OrderDate = *in.OrderDate
		}
		if in.Status != nil {
			o.Status = *in.Status
		}
		o.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateOrder(ctx, &o); err != nil {
			return err
		}

		if in.Items == nil {
			return nil
		}

		existing, err := tx.ItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.restoreItems(ctx, tx, existing); err != nil {
			return err
		}
		if err := tx.DeleteItemsByOrder(ctx, orderID); err != nil {
			return err
		}
		return s.addItems(ctx, tx, orderID, in.Items)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info().Str("order_id", orderID).Bool("items_replaced", in.Items != nil).
		Msg("order updated")
	return s.loadOrder(ctx, orderID)
}

// DeleteOrder restores every item's reserved stock, then deletes the order;
// item rows go with it via cascading ownership.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	err := s.Store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.GetOrder(ctx, orderID); err != nil {
			return err
		}
		items, err := tx.ItemsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.restoreItems(ctx, tx, items); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}
	s.Log.Info().Str("order_id", orderID).Msg("order deleted")
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.loadOrder(ctx, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter, page int) (OrderPage, error) {
	if page < 1 {
		page = 1
	}
	return s.Store.ListOrders(ctx, f, page)
}

// DecreaseStock / IncreaseStock are the standalone ledger operations: each
// one opens and commits its own transaction.
func (s *OrderService) DecreaseStock(ctx context.Context, productID string, qty int) error {
	return s.Store.WithinTx(ctx, func(tx Store) error {
		return s.Ledger.Decrease(ctx, tx, productID, qty)
	})
}

func (s *OrderService) IncreaseStock(ctx context.Context, productID string, qty int) error {
	return s.Store.WithinTx(ctx, func(tx Store) error {
		return s.Ledger.Increase(ctx, tx, productID, qty)
	})
}

// addItems resolves each product, reserves its stock and inserts the item
// row, walking the inputs in ascending product order (see sortedInputs).
func (s *OrderService) addItems(ctx context.Context, tx Store, orderID string, items []ItemInput) error {
	for _, it := range sortedInputs(items) {
		if _, err := tx.GetProduct(ctx, it.ProductID); err != nil {
			return err
		}
		if err := s.Ledger.Decrease(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
		row := &OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
		if err := tx.InsertItem(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) restoreItems(ctx context.Context, tx Store, items []OrderItem) error {
	for _, it := range sortedItems(items) {
		if err := s.Ledger.Increase(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// sortedInputs / sortedItems fix the lock acquisition order: two
// transactions touching the same pair of products always lock them in the
// same sequence, so they cannot deadlock each other.
func sortedInputs(items []ItemInput) []ItemInput {
	out := make([]ItemInput, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func sortedItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// loadOrder reads the order with its items, products and user attached.
func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, o.UserID)
	if err == nil {
		o.User = &u
	}
	items, err := s.Store.ItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		p, err := s.Store.GetProduct(ctx, items[i].ProductID)
		if err != nil {
			return nil, err
		}
		items[i].Product = &p
	}
	o.Items = items
	return &o, nil
}
