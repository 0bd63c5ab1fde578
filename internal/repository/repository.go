package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/cart"
	"storefront/internal/domain"
)

// ErrNotFound is returned when an entity does not exist
var ErrNotFound = errors.New("not found")

// ProductFilter narrows a catalog listing. Prices are in minor units.
type ProductFilter struct {
	NameSubstring string
	Category      string
	MinPrice      *int64
	MaxPrice      *int64
}

// ProductRepository is the trusted, read-only catalog. It prices carts
// directly through cart.PriceLookup.
type ProductRepository interface {
	cart.PriceLookup
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// CartSessions maps session ids to the cart store each session owns
type CartSessions interface {
	Create(ctx context.Context) (string, *cart.Store, error)
	Get(ctx context.Context, id string) (*cart.Store, error)
	Delete(ctx context.Context, id string) error
	Sweep(now time.Time) int
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
