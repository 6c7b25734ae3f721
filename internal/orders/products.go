package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

type UpdateProductInput struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
}

// ProductService is the catalog management layer. Note that UpdateProduct
// writes stock_quantity directly: this is the out-of-band restock path and
// is NOT part of the ledger's conservation accounting.
type ProductService struct {
	Store TxStore
	Log   zerolog.Logger
}

func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	now := time.Now().UTC()
	p := &Product{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Store.InsertProduct(ctx, p); err != nil {
		return nil, err
	}
	s.Log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductService) ListProducts(ctx context.Context, page int) (ProductPage, error) {
	if page < 1 {
		page = 1
	}
	return s.Store.ListProducts(ctx, page)
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (*Product, error) {
	var p Product
	err := s.Store.WithinTx(ctx, func(tx Store) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			p.Name = *in.Name
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Price != nil {
			p.Price = *in.Price
		}
		if in.StockQuantity != nil {
			p.StockQuantity = *in.StockQuantity
		}
		p.UpdatedAt = time.Now().UTC()
		return tx.UpdateProduct(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct refuses to remove a product that any order item still
// references.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.Store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.GetProduct(ctx, id); err != nil {
			return err
		}
		used, err := tx.ProductInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return ErrProductInUse
		}
		return tx.DeleteProduct(ctx, id)
	})
}
