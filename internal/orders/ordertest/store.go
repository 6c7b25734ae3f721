// Package ordertest provides an in-memory orders.TxStore for tests.
//
// Transactions are serialized behind one mutex and rolled back by snapshot,
// which mirrors the guarantees the Postgres store gets from row locks and
// transaction rollback closely enough to assert the stock-conservation and
// atomicity properties without a database.
package ordertest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-order-inventory/internal/orders"
)

type state struct {
	users    map[string]orders.User
	products map[string]orders.Product
	orders   map[string]orders.Order
	items    []orders.OrderItem // slice keeps insertion order
}

func (st *state) clone() *state {
	c := &state{
		users:    make(map[string]orders.User, len(st.users)),
		products: make(map[string]orders.Product, len(st.products)),
		orders:   make(map[string]orders.Order, len(st.orders)),
		items:    make([]orders.OrderItem, len(st.items)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	copy(c.items, st.items)
	return c
}

// Store implements orders.TxStore in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		users:    map[string]orders.User{},
		products: map[string]orders.Product{},
		orders:   map[string]orders.Order{},
	}}
}

// Seed helpers.

func (s *Store) AddUser(u orders.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) AddProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// Snapshot returns a deep copy of the current state for before/after
// comparisons in atomicity tests.
func (s *Store) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

// Stock reports the current stock quantity of a product, panicking on an
// unknown id to keep test assertions short.
func (s *Store) Stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	if !ok {
		panic("ordertest: unknown product " + id)
	}
	return p.StockQuantity
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx orders.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st.clone()
	if err := fn(s.st); err != nil {
		*s.st = *snap
		return err
	}
	return nil
}

// Pool-scoped methods delegate to the state under the same mutex that
// serializes transactions.

func (s *Store) GetUser(ctx context.Context, id string) (orders.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetUser(ctx, id)
}

func (s *Store) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetProduct(ctx, id)
}

func (s *Store) ListProducts(ctx context.Context, page int) (orders.ProductPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListProducts(ctx, page)
}

func (s *Store) InsertProduct(ctx context.Context, p *orders.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.InsertProduct(ctx, p)
}

func (s *Store) UpdateProduct(ctx context.Context, p *orders.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateProduct(ctx, p)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteProduct(ctx, id)
}

func (s *Store) ProductInUse(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ProductInUse(ctx, id)
}

func (s *Store) LockStock(ctx context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.LockStock(ctx, productID)
}

func (s *Store) SetStock(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.SetStock(ctx, productID, quantity)
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetOrder(ctx, id)
}

func (s *Store) ListOrders(ctx context.Context, f orders.OrderFilter, page int) (orders.OrderPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListOrders(ctx, f, page)
}

func (s *Store) InsertOrder(ctx context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.InsertOrder(ctx, o)
}

func (s *Store) UpdateOrder(ctx context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateOrder(ctx, o)
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteOrder(ctx, id)
}

func (s *Store) ItemsByOrder(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ItemsByOrder(ctx, orderID)
}

func (s *Store) GetItem(ctx context.Context, id string) (orders.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetItem(ctx, id)
}

func (s *Store) InsertItem(ctx context.Context, it *orders.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.InsertItem(ctx, it)
}

func (s *Store) UpdateItem(ctx context.Context, it *orders.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateItem(ctx, it)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteItem(ctx, id)
}

func (s *Store) DeleteItemsByOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteItemsByOrder(ctx, orderID)
}

func (s *Store) ItemsTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ItemsTotal(ctx, orderID)
}

// ---- state: the actual data operations, lock-free ----

func (st *state) GetUser(_ context.Context, id string) (orders.User, error) {
	u, ok := st.users[id]
	if !ok {
		return orders.User{}, orders.ErrUserNotFound
	}
	return u, nil
}

func (st *state) GetProduct(_ context.Context, id string) (orders.Product, error) {
	p, ok := st.products[id]
	if !ok {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

func (st *state) ListProducts(_ context.Context, page int) (orders.ProductPage, error) {
	all := make([]orders.Product, 0, len(st.products))
	for _, p := range st.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	out := orders.ProductPage{Total: len(all), Page: page, PerPage: orders.PageSize}
	out.LastPage = (out.Total + orders.PageSize - 1) / orders.PageSize
	if out.LastPage < 1 {
		out.LastPage = 1
	}
	out.Products = pageOf(all, page)
	return out, nil
}

func (st *state) InsertProduct(_ context.Context, p *orders.Product) error {
	st.products[p.ID] = *p
	return nil
}

func (st *state) UpdateProduct(_ context.Context, p *orders.Product) error {
	if _, ok := st.products[p.ID]; !ok {
		return &orders.ProductNotFoundError{ProductID: p.ID}
	}
	st.products[p.ID] = *p
	return nil
}

func (st *state) DeleteProduct(_ context.Context, id string) error {
	if _, ok := st.products[id]; !ok {
		return &orders.ProductNotFoundError{ProductID: id}
	}
	delete(st.products, id)
	return nil
}

func (st *state) ProductInUse(_ context.Context, id string) (bool, error) {
	for _, it := range st.items {
		if it.ProductID == id {
			return true, nil
		}
	}
	return false, nil
}

func (st *state) LockStock(_ context.Context, productID string) (int, error) {
	p, ok := st.products[productID]
	if !ok {
		return 0, &orders.ProductNotFoundError{ProductID: productID}
	}
	return p.StockQuantity, nil
}

func (st *state) SetStock(_ context.Context, productID string, quantity int) error {
	p, ok := st.products[productID]
	if !ok {
		return &orders.ProductNotFoundError{ProductID: productID}
	}
	p.StockQuantity = quantity
	st.products[productID] = p
	return nil
}

func (st *state) GetOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (st *state) ListOrders(_ context.Context, f orders.OrderFilter, page int) (orders.OrderPage, error) {
	var all []orders.Order
	for _, o := range st.orders {
		if f.StartDate != nil && o.OrderDate.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && o.OrderDate.After(*f.EndDate) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Search != "" && !matchesSearch(st, o, f.Search) {
			continue
		}
		if u, ok := st.users[o.UserID]; ok {
			o.User = &u
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderDate.After(all[j].OrderDate) })
	out := orders.OrderPage{Total: len(all), Page: page, PerPage: orders.PageSize}
	out.LastPage = (out.Total + orders.PageSize - 1) / orders.PageSize
	if out.LastPage < 1 {
		out.LastPage = 1
	}
	out.Orders = pageOf(all, page)
	return out, nil
}

func (st *state) InsertOrder(_ context.Context, o *orders.Order) error {
	st.orders[o.ID] = *o
	return nil
}

func (st *state) UpdateOrder(_ context.Context, o *orders.Order) error {
	if _, ok := st.orders[o.ID]; !ok {
		return orders.ErrOrderNotFound
	}
	st.orders[o.ID] = *o
	return nil
}

func (st *state) DeleteOrder(_ context.Context, id string) error {
	if _, ok := st.orders[id]; !ok {
		return orders.ErrOrderNotFound
	}
	delete(st.orders, id)
	// cascade
	kept := st.items[:0:0]
	for _, it := range st.items {
		if it.OrderID != id {
			kept = append(kept, it)
		}
	}
	st.items = kept
	return nil
}

func (st *state) ItemsByOrder(_ context.Context, orderID string) ([]orders.OrderItem, error) {
	var out []orders.OrderItem
	for _, it := range st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (st *state) GetItem(_ context.Context, id string) (orders.OrderItem, error) {
	for _, it := range st.items {
		if it.ID == id {
			return it, nil
		}
	}
	return orders.OrderItem{}, orders.ErrItemNotFound
}

func (st *state) InsertItem(_ context.Context, it *orders.OrderItem) error {
	st.items = append(st.items, *it)
	return nil
}

func (st *state) UpdateItem(_ context.Context, it *orders.OrderItem) error {
	for i := range st.items {
		if st.items[i].ID == it.ID {
			st.items[i] = *it
			return nil
		}
	}
	return orders.ErrItemNotFound
}

func (st *state) DeleteItem(_ context.Context, id string) error {
	for i := range st.items {
		if st.items[i].ID == id {
			st.items = append(st.items[:i], st.items[i+1:]...)
			return nil
		}
	}
	return orders.ErrItemNotFound
}

func (st *state) DeleteItemsByOrder(_ context.Context, orderID string) error {
	kept := st.items[:0:0]
	for _, it := range st.items {
		if it.OrderID != orderID {
			kept = append(kept, it)
		}
	}
	st.items = kept
	return nil
}

func (st *state) ItemsTotal(_ context.Context, orderID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range st.items {
		if it.OrderID == orderID {
			total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return total, nil
}

func matchesSearch(st *state, o orders.Order, search string) bool {
	if containsFold(o.Description, search) {
		return true
	}
	if u, ok := st.users[o.UserID]; ok && containsFold(u.Name, search) {
		return true
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func pageOf[T any](all []T, page int) []T {
	start := (page - 1) * orders.PageSize
	if start >= len(all) {
		return nil
	}
	end := start + orders.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// Now is a convenience for building fixtures with stable timestamps.
func Now() time.Time { return time.Now().UTC().Truncate(time.Second) }
