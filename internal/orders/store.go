package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the transaction-scoped persistence surface. Every method runs
// against whatever scope the Store was handed out for: the implementation
// obtained from TxStore.WithinTx runs inside that transaction, the
// top-level one autocommits per call.
type Store interface {
	GetUser(ctx context.Context, id string) (User, error)

	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, page int) (ProductPage, error)
	InsertProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
	ProductInUse(ctx context.Context, id string) (bool, error)

	// LockStock takes the exclusive row lock that serializes concurrent
	// stock adjustments and returns the current quantity read under it.
	// The lock is held until the enclosing transaction ends; calling it
	// outside WithinTx gives no protection beyond the single statement.
	LockStock(ctx context.Context, productID string) (int, error)
	SetStock(ctx context.Context, productID string, quantity int) error

	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter, page int) (OrderPage, error)
	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id string) error

	ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error)
	GetItem(ctx context.Context, id string) (OrderItem, error)
	InsertItem(ctx context.Context, it *OrderItem) error
	UpdateItem(ctx context.Context, it *OrderItem) error
	DeleteItem(ctx context.Context, id string) error
	DeleteItemsByOrder(ctx context.Context, orderID string) error

	// ItemsTotal returns SUM(price * quantity) over the order's items.
	ItemsTotal(ctx context.Context, orderID string) (decimal.Decimal, error)
}

// TxStore hands out transaction scopes. fn runs with a Store bound to one
// transaction; a nil return commits, any error (or a panic) rolls back and
// leaves no trace of the work done inside.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
