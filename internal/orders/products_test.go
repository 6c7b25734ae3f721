package orders_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-order-inventory/internal/orders"
	"github.com/ariefcatur/go-order-inventory/internal/orders/ordertest"
)

func newProductFixture() (*orders.ProductService, *orders.OrderService, *ordertest.Store) {
	st := ordertest.New()
	st.AddUser(orders.User{ID: "user-1", Name: "Mario Rossi", Email: "mario@example.com"})
	return &orders.ProductService{Store: st, Log: zerolog.Nop()},
		&orders.OrderService{Store: st, Log: zerolog.Nop()},
		st
}

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	products, _, st := newProductFixture()

	p, err := products.CreateProduct(ctx, orders.CreateProductInput{
		Name:          "Espresso Machine",
		Price:         dec("249.90"),
		StockQuantity: 12,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 12, st.Stock(p.ID))

	name := "Espresso Machine v2"
	stock := 20
	updated, err := products.UpdateProduct(ctx, p.ID, orders.UpdateProductInput{
		Name:          &name,
		StockQuantity: &stock,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 20, updated.StockQuantity)
	assert.True(t, updated.Price.Equal(dec("249.90")), "absent fields keep prior values")

	require.NoError(t, products.DeleteProduct(ctx, p.ID))
	_, err = products.GetProduct(ctx, p.ID)
	var pnf *orders.ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
}

func TestDeleteProductInUse(t *testing.T) {
	ctx := context.Background()
	products, ordersSvc, st := newProductFixture()

	p, err := products.CreateProduct(ctx, orders.CreateProductInput{
		Name: "Grinder", Price: dec("89.50"), StockQuantity: 10,
	})
	require.NoError(t, err)

	o, err := ordersSvc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:      "user-1",
		TotalAmount: dec("89.50"),
		Items:       []orders.ItemInput{{ProductID: p.ID, Quantity: 1, Price: dec("89.50")}},
	})
	require.NoError(t, err)

	err = products.DeleteProduct(ctx, p.ID)
	require.ErrorIs(t, err, orders.ErrProductInUse)
	assert.Equal(t, 9, st.Stock(p.ID), "failed delete must not touch the product")

	// once the order is gone the product can be removed
	require.NoError(t, ordersSvc.DeleteOrder(ctx, o.ID))
	require.NoError(t, products.DeleteProduct(ctx, p.ID))
}

func TestStatusKnown(t *testing.T) {
	assert.True(t, orders.StatusPending.Known())
	assert.True(t, orders.StatusProcessing.Known())
	assert.True(t, orders.StatusCompleted.Known())
	assert.True(t, orders.StatusCancelled.Known())
	assert.False(t, orders.Status("shipped").Known())
	assert.False(t, orders.Status("").Known())
}
