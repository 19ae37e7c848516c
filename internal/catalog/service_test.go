package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	products  map[uuid.UUID]Product
	listCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{products: make(map[uuid.UUID]Product)}
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memRepo) GetBySlug(_ context.Context, slug string) (Product, error) {
	for _, p := range m.products {
		if p.Slug == slug && p.Published {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *memRepo) List(_ context.Context, params ListParams) ([]Product, int64, error) {
	m.listCalls++
	var out []Product
	for _, p := range m.products {
		if !p.Published {
			continue
		}
		if params.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(params.Query)) {
			continue
		}
		if params.Category != "" && p.Category != params.Category {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) ListAll(_ context.Context, _, _ int32) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, p Product) (Product, error) {
	for _, existing := range m.products {
		if existing.Slug == p.Slug {
			return Product{}, ErrSlugTaken
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p
	return p, nil
}

func (m *memRepo) Update(_ context.Context, p Product) (Product, error) {
	if _, ok := m.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return p, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := newMemRepo()
	return &Service{Repo: repo, Cache: NewCache(rdb, time.Minute), Logger: zerolog.Nop()}, repo
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "basic-tee", Slugify("  Basic   Tee "))
	require.Equal(t, "basic-tee-2024", Slugify("Basic--Tee!! 2024"))
	require.Equal(t, "o-thun-nam", Slugify("Áo Thun Nam")) // non-ASCII letters are stripped
	require.Equal(t, "", Slugify("!!!"))
}

func TestCreateDerivesSlug(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), Product{Name: "Basic Tee 2024", Price: 99000, Published: true})
	require.NoError(t, err)
	require.Equal(t, "basic-tee-2024", created.Slug)
	require.NotNil(t, created.Images)
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), Product{Name: "", Price: 10})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), Product{Name: "X", Price: -1})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), Product{Name: "X", Stock: -1})
	require.Error(t, err)
}

func TestCreateSlugConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, Product{Name: "Basic Tee", Price: 1000})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Product{Name: "Basic Tee", Price: 2000})
	require.Error(t, err)
	require.Contains(t, err.Error(), "slug")
}

func TestListCachesResults(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "Basic Tee", Price: 1000, Published: true})
	require.NoError(t, err)

	first, err := svc.List(ctx, ListParams{Query: "tee"})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	second, err := svc.List(ctx, ListParams{Query: "tee"})
	require.NoError(t, err)
	require.Equal(t, first.Total, second.Total)
	require.Equal(t, 1, repo.listCalls, "second read served from cache")
}

func TestWriteInvalidatesCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "Basic Tee", Price: 1000, Published: true})
	require.NoError(t, err)
	_, err = svc.List(ctx, ListParams{})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Product{Name: "Second Tee", Price: 2000, Published: true})
	require.NoError(t, err)

	result, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, 2, repo.listCalls)
}

func TestGetBySlugHidesDrafts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "Draft Tee", Price: 1000, Published: false})
	require.NoError(t, err)
	_, err = svc.GetBySlug(ctx, "draft-tee")
	require.ErrorIs(t, err, ErrNotFound)
}
