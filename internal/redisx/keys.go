package redisx

import "time"

const (
	// Cached order payload (full JSON): order:{order_id}
	KeyOrderCache = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low stock flag set by stockwatch: alert:stock:{product_id} -> quantity
	KeyStockAlert = "alert:stock:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
	TTLStockAlert = 24 * time.Hour
)
