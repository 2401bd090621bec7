// Package catalog holds the most recently fetched product page. Pages come
// from the backend on demand; product_updated feed events are merged into
// whatever page is currently displayed.
package catalog

import (
	"sync"

	"courierdeck/upstream"
)

// PageSize is the fixed catalog page length.
const PageSize = 50

// Query selects one catalog page.
type Query struct {
	Search string
	Sort   string
	Order  string
	Page   int // 1-based
}

// Normalize clamps the query to valid values.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Order != "asc" && q.Order != "desc" {
		q.Order = "asc"
	}
	return q
}

// Skip returns the row offset for the page.
func (q Query) Skip() int {
	return (q.Page - 1) * PageSize
}

// Catalog is the product page view-model. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	query    Query
	products []upstream.Product
	total    int
	pages    int
	loaded   bool
}

func New() *Catalog {
	return &Catalog{}
}

// SetPage replaces the displayed page.
func (c *Catalog) SetPage(q Query, page *upstream.ProductPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = q
	c.products = make([]upstream.Product, len(page.Products))
	copy(c.products, page.Products)
	c.total = page.Total
	c.pages = page.TotalPages
	c.loaded = true
}

// Merge applies a product_updated event. A product already on the page is
// replaced in place; one not on the page is prepended so the change is
// visible without a refetch.
func (c *Catalog) Merge(p upstream.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return
	}
	for i := range c.products {
		if c.products[i].ID == p.ID {
			c.products[i] = p
			return
		}
	}
	c.products = append([]upstream.Product{p}, c.products...)
}

// Page returns a copy of the displayed page plus its pagination facts.
func (c *Catalog) Page() (products []upstream.Product, total, totalPages int, query Query) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	products = make([]upstream.Product, len(c.products))
	copy(products, c.products)
	return products, c.total, c.pages, c.query
}

// Loaded reports whether any page has been fetched yet.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
