package product

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"paystore/internal/models"

	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound is returned when the query service knows no product for the identifier.
	ErrNotFound = errors.New("product not found")

	// ErrQueryFailed wraps transport or query level failures of the query service.
	ErrQueryFailed = errors.New("product query failed")
)

// QueryService looks up product descriptors on the platform.
type QueryService interface {
	Query(ctx context.Context, productIDs []string) ([]models.Product, error)
}

// Cache resolves product identifiers and keeps every product it has seen for
// the lifetime of the process.
type Cache struct {
	query QueryService

	mu       sync.RWMutex
	products map[string]models.Product

	group singleflight.Group
}

func NewCache(query QueryService) *Cache {
	return &Cache{
		query:    query,
		products: make(map[string]models.Product),
	}
}

// Lookup returns a product that was already fetched, without querying.
func (c *Cache) Lookup(productID string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[productID]
	return p, ok
}

// Resolve returns the product for productID, querying the service on first use.
// Concurrent resolves of the same identifier share a single query. A caller
// whose ctx ends stops waiting without failing the others.
func (c *Cache) Resolve(ctx context.Context, productID string) (models.Product, error) {
	if p, ok := c.Lookup(productID); ok {
		return p, nil
	}

	// The shared query must not die with whichever caller started it. The
	// query service bounds it with its own timeout.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(productID, func() (interface{}, error) {
		return c.fetch(shared, productID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return models.Product{}, res.Err
		}
		return res.Val.(models.Product), nil
	case <-ctx.Done():
		return models.Product{}, ctx.Err()
	}
}

func (c *Cache) fetch(ctx context.Context, productID string) (models.Product, error) {
	// another caller may have filled it while we waited for the group
	if p, ok := c.Lookup(productID); ok {
		return p, nil
	}

	products, err := c.query.Query(ctx, []string{productID})
	if err != nil {
		glog.Warningf("query product %s, err:%v", productID, err)
		return models.Product{}, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if len(products) == 0 {
		return models.Product{}, fmt.Errorf("%w: %s", ErrNotFound, productID)
	}

	c.mu.Lock()
	for _, p := range products {
		c.products[p.ID] = p
	}
	c.mu.Unlock()

	for _, p := range products {
		if p.ID == productID {
			return p, nil
		}
	}

	// Known looseness: an answer that does not contain the requested
	// identifier still resolves to its first product.
	glog.Warningf("query for product %s returned %s only, using first result", productID, products[0].ID)
	return products[0], nil
}
