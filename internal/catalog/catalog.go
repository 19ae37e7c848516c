package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a product id or slug resolves to nothing.
var ErrNotFound = errors.New("catalog: product not found")

// ErrSlugTaken is returned when a create or update hits the unique slug index.
var ErrSlugTaken = errors.New("catalog: slug is already in use")

// Product is a sellable item. Price is in whole VND.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       int64     `json:"price"`
	Stock       int32     `json:"stock"`
	Images      []string  `json:"images"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InStock reports whether the product can currently be added to a cart.
func (p Product) InStock() bool {
	return p.Published && p.Stock > 0
}

// ListParams captures the public listing filters.
type ListParams struct {
	Query    string
	Category string
	Page     int
	PerPage  int
}

// ListResult is a page of products plus the unfiltered total.
type ListResult struct {
	Items   []Product `json:"items"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"perPage"`
}
