package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is the slice of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements TxStore on Postgres. The zero scope runs each call on
// the pool (autocommit); WithinTx hands out a tx-bound scope.
type PGStore struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, q: pool}
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&PGStore{pool: s.pool, q: pgtx}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

// ---- users ----

func (s *PGStore) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.q.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

// ---- products ----

const productCols = `id, name, COALESCE(description,''), price, stock_quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PGStore) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.q.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, &ProductNotFoundError{ProductID: id}
	}
	return p, err
}

func (s *PGStore) ListProducts(ctx context.Context, page int) (ProductPage, error) {
	out := ProductPage{Page: page, PerPage: PageSize}

	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&out.Total); err != nil {
		return out, err
	}
	rows, err := s.q.Query(ctx,
		`SELECT `+productCols+` FROM products ORDER BY name LIMIT $1 OFFSET $2`,
		PageSize, (page-1)*PageSize)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return out, err
		}
		out.Products = append(out.Products, p)
	}
	out.LastPage = lastPage(out.Total)
	return out, rows.Err()
}

func (s *PGStore) InsertProduct(ctx context.Context, p *Product) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO products(id, name, description, price, stock_quantity, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7)`,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *PGStore) UpdateProduct(ctx context.Context, p *Product) error {
	ct, err := s.q.Exec(ctx, `
		UPDATE products SET name=$2, description=NULLIF($3,''), price=$4, stock_quantity=$5, updated_at=$6
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &ProductNotFoundError{ProductID: p.ID}
	}
	return nil
}

func (s *PGStore) DeleteProduct(ctx context.Context, id string) error {
	ct, err := s.q.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &ProductNotFoundError{ProductID: id}
	}
	return nil
}

func (s *PGStore) ProductInUse(ctx context.Context, id string) (bool, error) {
	var used bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id=$1)`, id).Scan(&used)
	return used, err
}

// ---- stock primitives ----

func (s *PGStore) LockStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := s.q.QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, &ProductNotFoundError{ProductID: productID}
	}
	return stock, err
}

func (s *PGStore) SetStock(ctx context.Context, productID string, quantity int) error {
	ct, err := s.q.Exec(ctx,
		`UPDATE products SET stock_quantity=$2, updated_at=now() WHERE id=$1`,
		productID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return &ProductNotFoundError{ProductID: productID}
	}
	return nil
}

// ---- orders ----

const orderCols = `id, user_id, COALESCE(description,''), total_amount, order_date, status, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Description, &o.TotalAmount, &o.OrderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *PGStore) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(s.q.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

// ListOrders builds one parameterized clause per set filter field and
// pages at PageSize ordered by order_date descending.
func (s *PGStore) ListOrders(ctx context.Context, f OrderFilter, page int) (OrderPage, error) {
	out := OrderPage{Page: page, PerPage: PageSize}

	conds := []string{}
	args := []any{}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conds = append(conds, fmt.Sprintf("o.order_date >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		conds = append(conds, fmt.Sprintf("o.order_date <= $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(u.name ILIKE $%d OR o.description ILIKE $%d)", len(args), len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	from := ` FROM orders o JOIN users u ON u.id = o.user_id` + where

	if err := s.q.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&out.Total); err != nil {
		return out, err
	}

	args = append(args, PageSize, (page-1)*PageSize)
	rows, err := s.q.Query(ctx, `
		SELECT o.id, o.user_id, COALESCE(o.description,''), o.total_amount, o.order_date,
		       o.status, o.created_at, o.updated_at, u.id, u.name, u.email, u.created_at`+
		from+fmt.Sprintf(` ORDER BY o.order_date DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var o Order
		var u User
		if err := rows.Scan(&o.ID, &o.UserID, &o.Description, &o.TotalAmount, &o.OrderDate,
			&o.Status, &o.CreatedAt, &o.UpdatedAt, &u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return out, err
		}
		o.User = &u
		out.Orders = append(out.Orders, o)
	}
	out.LastPage = lastPage(out.Total)
	return out, rows.Err()
}

func (s *PGStore) InsertOrder(ctx context.Context, o *Order) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO orders(id, user_id, description, total_amount, order_date, status, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8)`,
		o.ID, o.UserID, o.Description, o.TotalAmount, o.OrderDate, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (s *PGStore) UpdateOrder(ctx context.Context, o *Order) error {
	ct, err := s.q.Exec(ctx, `
		UPDATE orders SET description=NULLIF($2,''), total_amount=$3, order_date=$4, status=$5, updated_at=$6
		WHERE id=$1`,
		o.ID, o.Description, o.TotalAmount, o.OrderDate, o.Status, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PGStore) DeleteOrder(ctx context.Context, id string) error {
	ct, err := s.q.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ---- order items ----

func (s *PGStore) ItemsByOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id=$1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PGStore) GetItem(ctx context.Context, id string) (OrderItem, error) {
	var it OrderItem
	err := s.q.QueryRow(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE id=$1`, id).
		Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderItem{}, ErrItemNotFound
	}
	return it, err
}

func (s *PGStore) InsertItem(ctx context.Context, it *OrderItem) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, quantity, price)
		VALUES ($1,$2,$3,$4,$5)`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price)
	return err
}

func (s *PGStore) UpdateItem(ctx context.Context, it *OrderItem) error {
	ct, err := s.q.Exec(ctx,
		`UPDATE order_items SET quantity=$2, price=$3 WHERE id=$1`,
		it.ID, it.Quantity, it.Price)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *PGStore) DeleteItem(ctx context.Context, id string) error {
	ct, err := s.q.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *PGStore) DeleteItemsByOrder(ctx context.Context, orderID string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID)
	return err
}

func (s *PGStore) ItemsTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(price * quantity), 0) FROM order_items WHERE order_id=$1`,
		orderID).Scan(&total)
	return total, err
}
