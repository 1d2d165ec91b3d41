package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/order-factory/internal/domain/product"
)

const (
	productColumns = `id, sku, type, name, price_vat, cost_price, vat_rate, stock, availability, state`

	getProductByIDSQL  = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	getProductsSQL     = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	getProductBySKUSQL = `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	// The CTE takes the row lock and remembers the previous state so the
	// transition to unavailable is reported exactly once.
	decrementStockSQL = `WITH prev AS (
			SELECT id, state FROM products WHERE id = $1 FOR UPDATE
		)
		UPDATE products p SET
			stock = p.stock - $2,
			state = CASE WHEN p.stock - $2 <= 0 THEN 'unavailable' ELSE p.state END
		FROM prev
		WHERE p.id = prev.id
		RETURNING p.stock + $2, p.stock, p.state, prev.state`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	q querier
}

// GetByID returns product.ErrNotFound when no product has the id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return r.getOne(ctx, "get product", getProductByIDSQL, id)
}

// GetBySKU returns product.ErrNotFound when no product carries the SKU.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return r.getOne(ctx, "get product by sku", getProductBySKUSQL, sku)
}

// GetByIDs returns the products that exist among ids. Missing ids are
// silently absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, getProductsSQL, ids)
	if err != nil {
		return nil, persistErr("get products", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, persistErr("get products", err)
	}
	return products, nil
}

// DecrementStock subtracts qty from the product stock under a row lock and
// flips the product to unavailable once the counter reaches zero.
func (r *ProductRepository) DecrementStock(ctx context.Context, id int64, qty int) (product.StockChange, error) {
	var (
		c         product.StockChange
		state     string
		prevState string
	)
	err := r.q.QueryRow(ctx, decrementStockSQL, id, qty).Scan(&c.Before, &c.After, &state, &prevState)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, product.ErrNotFound
		}
		return c, persistErr("decrement stock", err)
	}
	c.ProductID = id
	c.State = product.State(state)
	c.BecameUnavailable = c.State == product.StateUnavailable && product.State(prevState) != product.StateUnavailable
	return c, nil
}

func (r *ProductRepository) getOne(ctx context.Context, op, query string, arg any) (*product.Product, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, persistErr(op, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, persistErr(op, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p            product.Product
		availability string
		state        string
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Type, &p.Name, &p.PriceVAT, &p.CostPrice, &p.VATRate,
		&p.Stock, &availability, &state,
	)
	p.Availability = product.Availability(availability)
	p.State = product.State(state)
	return p, err
}
