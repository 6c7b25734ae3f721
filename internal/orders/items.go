package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Single-item mutation path: add, patch or remove one item on an existing
// order. Unlike the create/update paths in service.go, every operation
// here recomputes the order's total_amount from its items afterwards.

func (s *OrderService) ListItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	if _, err := s.Store.GetOrder(ctx, orderID); err != nil {
		return nil, err
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
	return items, nil
}

func (s *OrderService) GetItem(ctx context.Context, orderID, itemID string) (*OrderItem, error) {
	it, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.OrderID != orderID {
		return nil, ErrItemNotInOrder
	}
	p, err := s.Store.GetProduct(ctx, it.ProductID)
	if err == nil {
		it.Product = &p
	}
	return &it, nil
}

func (s *OrderService) AddItem(ctx context.Context, orderID string, in ItemInput) (*OrderItem, error) {
	row := &OrderItem{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Price:     in.Price,
	}
	err := s.Store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.GetOrder(ctx, orderID); err != nil {
			return err
		}
		if _, err := tx.GetProduct(ctx, in.ProductID); err != nil {
			return err
		}
		if err := s.Ledger.Decrease(ctx, tx, in.ProductID, in.Quantity); err != nil {
			return err
		}
		if err := tx.InsertItem(ctx, row); err != nil {
			return err
		}
		return s.syncTotal(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().Str("order_id", orderID).Str("item_id", row.ID).Msg("order item added")
	return row, nil
}

// UpdateItem adjusts stock by the quantity delta: raising the quantity
// reserves the difference, lowering it releases the difference. A price
// change alone moves no stock.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID string, patch ItemPatch) (*OrderItem, error) {
	var updated OrderItem
	err := s.Store.WithinTx(ctx, func(tx Store) error {
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.OrderID != orderID {
			return ErrItemNotInOrder
		}

		oldQty := it.Quantity
		if patch.Quantity != nil {
			it.Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			it.Price = *patch.Price
		}

		switch {
		case it.Quantity > oldQty:
			if err := s.Ledger.Decrease(ctx, tx, it.ProductID, it.Quantity-oldQty); err != nil {
				return err
			}
		case it.Quantity < oldQty:
			if err := s.Ledger.Increase(ctx, tx, it.ProductID, oldQty-it.Quantity); err != nil {
				return err
			}
		}

		if err := tx.UpdateItem(ctx, &it); err != nil {
			return err
		}
		updated = it
		return s.syncTotal(ctx, tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID string) error {
	err := s.Store.WithinTx(ctx, func(tx Store) error {
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.OrderID != orderID {
			return ErrItemNotInOrder
		}
		if err := s.Ledger.Increase(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return s.syncTotal(ctx, tx, orderID)
	})
	if err != nil {
		return err
	}
	s.Log.Info().Str("order_id", orderID).Str("item_id", itemID).Msg("order item removed")
	return nil
}

// syncTotal rewrites total_amount as SUM(price * quantity).
func (s *OrderService) syncTotal(ctx context.Context, tx Store, orderID string) error {
	o, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	total, err := tx.ItemsTotal(ctx, orderID)
	if err != nil {
		return err
	}
	o.TotalAmount = total
	o.UpdatedAt = time.Now().UTC()
	return tx.UpdateOrder(ctx, &o)
}
