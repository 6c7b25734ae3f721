// Package stockwatch consumes order lifecycle events and flags products
// whose stock has dropped to or below a threshold, so restocking can be
// driven off the alert keys without polling the catalog.
package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-order-inventory/internal/kafka"
	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/redisx"
)

type Service struct {
	Store     orders.Store
	Redis     *redis.Client
	Threshold int
	Name      string
	Log       zerolog.Logger
}

// HandleOrderEvent is wired as the consumer handler for the created and
// updated topics. Deletions only ever raise stock, so they are ignored.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	var items []orders.ItemQty
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		items = p.Items
	case orders.EventOrderUpdated:
		p, err := kafkax.UnwrapPayload[orders.OrderUpdatedPayload](env.Payload)
		if err != nil {
			return err
		}
		if !p.ItemsReplaced {
			return nil
		}
		items = p.Items
	default:
		return nil
	}

	// dedup on event_id; redeliveries are expected with manual commits
	dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	for _, it := range items {
		if err := s.checkProduct(ctx, it.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkProduct(ctx context.Context, productID string) error {
	p, err := s.Store.GetProduct(ctx, productID)
	if err != nil {
		// the order may have been deleted along with its product since the
		// event was written; nothing left to watch
		if orders.IsNotFound(err) {
			return nil
		}
		return err
	}
	if p.StockQuantity > s.Threshold {
		return nil
	}
	s.Log.Warn().Str("product_id", p.ID).Str("name", p.Name).
		Int("stock", p.StockQuantity).Int("threshold", s.Threshold).
		Msg("low stock")
	key := fmt.Sprintf(redisx.KeyStockAlert, p.ID)
	return s.Redis.Set(ctx, key, strconv.Itoa(p.StockQuantity), redisx.TTLStockAlert).Err()
}
