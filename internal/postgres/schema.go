package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT,
	price          NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id           UUID PRIMARY KEY,
	user_id      UUID NOT NULL REFERENCES users(id),
	description  TEXT,
	total_amount NUMERIC(12,2) NOT NULL CHECK (total_amount >= 0),
	order_date   TIMESTAMPTZ NOT NULL DEFAULT now(),
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	id         UUID PRIMARY KEY,
	seq        BIGSERIAL,
	order_id   UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id UUID NOT NULL REFERENCES products(id),
	quantity   INT NOT NULL CHECK (quantity >= 1),
	price      NUMERIC(12,2) NOT NULL CHECK (price >= 0)
);

CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders (order_date DESC);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items (product_id);
`

// Migrate applies the schema. Statements are idempotent so running it on
// every seed invocation is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
