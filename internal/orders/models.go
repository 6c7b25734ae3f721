package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Description string          `json:"description,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderDate   time.Time       `json:"order_date"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Populated on reads that load relations, nil/empty otherwise.
	User  *User       `json:"user,omitempty"`
	Items []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	// Price is a snapshot taken when the item is created; it does not
	// follow later product price changes.
	Price   decimal.Decimal `json:"price"`
	Product *Product        `json:"product,omitempty"`
}

// Status is a free-form tag. The four known values are checked for
// membership at the boundary but no transition rules exist anywhere:
// a completed order can go straight back to pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type ItemInput struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CreateOrderInput struct {
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OrderDate   *time.Time      `json:"order_date"`
	Status      Status          `json:"status"`
	Items       []ItemInput     `json:"items"`
}

// UpdateOrderInput patches scalar fields; nil pointers keep prior values.
// A nil Items slice leaves items and stock untouched; a non-nil slice is a
// full replace of the item set.
type UpdateOrderInput struct {
	Description *string          `json:"description"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	OrderDate   *time.Time       `json:"order_date"`
	Status      *Status          `json:"status"`
	Items       []ItemInput      `json:"items"`
}

// ItemPatch updates a single existing item. Nil fields keep prior values.
type ItemPatch struct {
	Quantity *int             `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

// OrderFilter is the explicit filter specification for order listings.
// Each set field maps to exactly one query clause.
type OrderFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
	Status    Status
}

const PageSize = 15

type OrderPage struct {
	Orders   []Order `json:"orders"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PerPage  int     `json:"per_page"`
	LastPage int     `json:"last_page"`
}

type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
	LastPage int       `json:"last_page"`
}

func lastPage(total int) int {
	lp := (total + PageSize - 1) / PageSize
	if lp < 1 {
		lp = 1
	}
	return lp
}
