package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-bazuuyu/internal/catalog"
	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

const maxLineQty = 99

// Catalog is the product lookup the cart needs for add-time validation.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Repository is the persistence surface the cart service needs.
type Repository interface {
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, qty int32) error
	SetItemQty(ctx context.Context, owner Owner, productID uuid.UUID, qty int32) error
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID) error
	Get(ctx context.Context, owner Owner) (Cart, error)
	Clear(ctx context.Context, owner Owner) error
	MergeGuest(ctx context.Context, guestToken string, userID uuid.UUID) error
}

// Service validates cart mutations against the live catalog.
type Service struct {
	Repo    Repository
	Catalog Catalog
}

func (s *Service) Get(ctx context.Context, owner Owner) (Cart, error) {
	return s.Repo.Get(ctx, owner)
}

// Add puts qty units of a product into the cart. Unpublished or out-of-stock
// products are rejected at add time; stock is checked again at checkout.
func (s *Service) Add(ctx context.Context, owner Owner, productID uuid.UUID, qty int32) (Cart, error) {
	if qty < 1 || qty > maxLineQty {
		return Cart{}, common.NewAppError("VALIDATION_ERROR", "qty must be between 1 and 99", http.StatusBadRequest, nil)
	}
	p, err := s.Catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Cart{}, common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	if !p.Published {
		return Cart{}, common.NewAppError("PRODUCT_NOT_FOUND", "product not found", http.StatusNotFound, nil)
	}
	if p.Stock < qty {
		return Cart{}, common.NewAppError("OUT_OF_STOCK", "not enough stock for this product", http.StatusConflict, nil)
	}
	if err := s.Repo.AddItem(ctx, owner, productID, qty); err != nil {
		return Cart{}, err
	}
	return s.Repo.Get(ctx, owner)
}

// SetQty replaces a line's quantity; zero removes it.
func (s *Service) SetQty(ctx context.Context, owner Owner, productID uuid.UUID, qty int32) (Cart, error) {
	if qty < 0 || qty > maxLineQty {
		return Cart{}, common.NewAppError("VALIDATION_ERROR", "qty must be between 0 and 99", http.StatusBadRequest, nil)
	}
	if err := s.Repo.SetItemQty(ctx, owner, productID, qty); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, common.NewAppError("CART_ITEM_NOT_FOUND", "product is not in the cart", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	return s.Repo.Get(ctx, owner)
}

func (s *Service) Remove(ctx context.Context, owner Owner, productID uuid.UUID) (Cart, error) {
	if err := s.Repo.RemoveItem(ctx, owner, productID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, common.NewAppError("CART_ITEM_NOT_FOUND", "product is not in the cart", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	return s.Repo.Get(ctx, owner)
}

func (s *Service) Clear(ctx context.Context, owner Owner) error {
	return s.Repo.Clear(ctx, owner)
}

// Merge folds a guest cart into the freshly authenticated user's cart.
func (s *Service) Merge(ctx context.Context, guestToken string, userID uuid.UUID) (Cart, error) {
	if guestToken != "" {
		if err := s.Repo.MergeGuest(ctx, guestToken, userID); err != nil {
			return Cart{}, err
		}
	}
	return s.Repo.Get(ctx, Owner{UserID: userID})
}
