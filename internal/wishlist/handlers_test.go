package wishlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-bazuuyu/internal/catalog"
	"github.com/noah-isme/backend-bazuuyu/internal/common"
)

type memCatalog map[uuid.UUID]catalog.Product

func (m memCatalog) GetByID(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := m[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type memRepo struct {
	catalog memCatalog
	saved   map[uuid.UUID]map[uuid.UUID]time.Time
}

func (m *memRepo) Add(_ context.Context, userID, productID uuid.UUID) error {
	if m.saved[userID] == nil {
		m.saved[userID] = make(map[uuid.UUID]time.Time)
	}
	if _, ok := m.saved[userID][productID]; !ok {
		m.saved[userID][productID] = time.Now()
	}
	return nil
}

func (m *memRepo) Remove(_ context.Context, userID, productID uuid.UUID) error {
	if _, ok := m.saved[userID][productID]; !ok {
		return ErrNotFound
	}
	delete(m.saved[userID], productID)
	return nil
}

func (m *memRepo) List(_ context.Context, userID uuid.UUID) ([]Entry, error) {
	entries := []Entry{}
	for pid, at := range m.saved[userID] {
		p := m.catalog[pid]
		entries = append(entries, Entry{
			ProductID: pid, Name: p.Name, Slug: p.Slug, Price: p.Price,
			InStock: p.Published && p.Stock > 0, AddedAt: at,
		})
	}
	return entries, nil
}

func setup() (http.Handler, uuid.UUID, uuid.UUID) {
	productID := uuid.New()
	cat := memCatalog{productID: {ID: productID, Name: "Basic Tee", Slug: "basic-tee", Price: 99000, Stock: 3, Published: true}}
	h := &Handler{Repo: &memRepo{catalog: cat, saved: make(map[uuid.UUID]map[uuid.UUID]time.Time)}, Catalog: cat}
	userID := uuid.New()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUserID(req.Context(), userID)))
		})
	})
	r.Route("/wishlist", h.Routes)
	return r, userID, productID
}

func TestWishlistLifecycle(t *testing.T) {
	srv, _, productID := setup()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wishlist/"+productID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Saving twice is fine.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wishlist/"+productID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wishlist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "basic-tee")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/wishlist/"+productID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/wishlist/"+productID.String(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWishlistMerge(t *testing.T) {
	srv, _, productID := setup()

	body := `{"productIds":["` + productID.String() + `","` + uuid.NewString() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/wishlist/merge", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"merged":1,"skipped":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wishlist", nil))
	require.Contains(t, rec.Body.String(), "basic-tee")
}

func TestWishlistUnknownProduct(t *testing.T) {
	srv, _, _ := setup()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wishlist/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wishlist/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
