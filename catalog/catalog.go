// Package catalog reads the bakery's public product listing.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"bakery-storefront/metrics"
	"bakery-storefront/models"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
}

type Catalog struct {
	api API
}

func New(api API) *Catalog {
	return &Catalog{api: api}
}

// List returns the active products in the order the server sends them.
func (c *Catalog) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := c.api.Get(ctx, "/products/", &products)
	metrics.RecordOperation("products_list", err)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (c *Catalog) Get(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.api.Get(ctx, "/products/"+strconv.FormatInt(id, 10), &p); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &p, nil
}
