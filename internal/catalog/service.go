package catalog

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Repository is the persistence surface the catalog service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(ctx context.Context, p ListParams) ([]Product, int64, error)
	ListAll(ctx context.Context, limit, offset int32) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates catalog queries, slug management and caching.
type Service struct {
	Repo   Repository
	Cache  *Cache
	Logger zerolog.Logger
}

// List serves the public product listing. Results are cached per filter
// combination; cache failures degrade to a direct query.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}

	key := fmt.Sprintf("catalog:list:q=%s:c=%s:p=%d:n=%d", p.Query, p.Category, p.Page, p.PerPage)
	var cached ListResult
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cached, nil
	}

	items, total, err := s.Repo.List(ctx, p)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Product{}
	}
	result := ListResult{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage}
	if err := s.Cache.SetJSON(ctx, key, result); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return result, nil
}

// GetBySlug serves the public product detail page.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Product, error) {
	key := "catalog:product:" + slug
	var cached Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cached, nil
	}

	p, err := s.Repo.GetBySlug(ctx, slug)
	if err != nil {
		return Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, p); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) ListAll(ctx context.Context, limit, offset int32) ([]Product, error) {
	return s.Repo.ListAll(ctx, limit, offset)
}

// Create validates and stores a new product, deriving the slug from the name
// when none was supplied.
func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	if err := validateProduct(&p); err != nil {
		return Product{}, err
	}
	created, err := s.Repo.Create(ctx, p)
	if err != nil {
		return Product{}, translateConflict(err)
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, p Product) (Product, error) {
	if err := validateProduct(&p); err != nil {
		return Product{}, err
	}
	updated, err := s.Repo.Update(ctx, p)
	if err != nil {
		return Product{}, translateConflict(err)
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

func validateProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return common.NewAppError("VALIDATION_ERROR", "product name is required", http.StatusBadRequest, nil)
	}
	if p.Price < 0 {
		return common.NewAppError("VALIDATION_ERROR", "price cannot be negative", http.StatusBadRequest, nil)
	}
	if p.Stock < 0 {
		return common.NewAppError("VALIDATION_ERROR", "stock cannot be negative", http.StatusBadRequest, nil)
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	} else {
		p.Slug = Slugify(p.Slug)
	}
	if p.Slug == "" {
		return common.NewAppError("VALIDATION_ERROR", "could not derive a slug from the product name", http.StatusBadRequest, nil)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return nil
}

func translateConflict(err error) error {
	if err == ErrSlugTaken {
		return common.NewAppError("SLUG_TAKEN", "a product with this slug already exists", http.StatusConflict, err)
	}
	return err
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
