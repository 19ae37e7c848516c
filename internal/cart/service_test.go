package cart

import (
	"context"
	"testing"

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
	lines   map[string]map[uuid.UUID]int32 // owner key → product → qty
}

func ownerKey(o Owner) string {
	if o.IsGuest() {
		return "guest:" + o.GuestToken
	}
	return "user:" + o.UserID.String()
}

func newMemRepo(c memCatalog) *memRepo {
	return &memRepo{catalog: c, lines: make(map[string]map[uuid.UUID]int32)}
}

func (m *memRepo) bucket(o Owner) map[uuid.UUID]int32 {
	k := ownerKey(o)
	if m.lines[k] == nil {
		m.lines[k] = make(map[uuid.UUID]int32)
	}
	return m.lines[k]
}

func (m *memRepo) AddItem(_ context.Context, o Owner, productID uuid.UUID, qty int32) error {
	m.bucket(o)[productID] += qty
	return nil
}

func (m *memRepo) SetItemQty(_ context.Context, o Owner, productID uuid.UUID, qty int32) error {
	b := m.bucket(o)
	if _, ok := b[productID]; !ok {
		return ErrNotFound
	}
	if qty <= 0 {
		delete(b, productID)
	} else {
		b[productID] = qty
	}
	return nil
}

func (m *memRepo) RemoveItem(_ context.Context, o Owner, productID uuid.UUID) error {
	b := m.bucket(o)
	if _, ok := b[productID]; !ok {
		return ErrNotFound
	}
	delete(b, productID)
	return nil
}

func (m *memRepo) Get(_ context.Context, o Owner) (Cart, error) {
	c := Cart{Items: []Line{}}
	for pid, qty := range m.bucket(o) {
		p := m.catalog[pid]
		line := Line{
			ProductID: pid, Name: p.Name, Slug: p.Slug,
			UnitPrice: p.Price, Qty: qty, LineTotal: p.Price * int64(qty),
			InStock: p.Published && p.Stock >= qty,
		}
		c.Subtotal += line.LineTotal
		c.Items = append(c.Items, line)
	}
	return c, nil
}

func (m *memRepo) Clear(_ context.Context, o Owner) error {
	delete(m.lines, ownerKey(o))
	return nil
}

func (m *memRepo) MergeGuest(_ context.Context, guestToken string, userID uuid.UUID) error {
	guest := Owner{GuestToken: guestToken}
	user := Owner{UserID: userID}
	for pid, qty := range m.bucket(guest) {
		m.bucket(user)[pid] += qty
	}
	delete(m.lines, ownerKey(guest))
	return nil
}

func fixture() (memCatalog, uuid.UUID, uuid.UUID) {
	inStock := uuid.New()
	draft := uuid.New()
	c := memCatalog{
		inStock: {ID: inStock, Name: "Basic Tee", Slug: "basic-tee", Price: 99000, Stock: 5, Published: true},
		draft:   {ID: draft, Name: "Draft Tee", Slug: "draft-tee", Price: 50000, Stock: 5, Published: false},
	}
	return c, inStock, draft
}

func TestAddValidatesProduct(t *testing.T) {
	cat, inStock, draft := fixture()
	svc := &Service{Repo: newMemRepo(cat), Catalog: cat}
	owner := Owner{UserID: uuid.New()}
	ctx := context.Background()

	c, err := svc.Add(ctx, owner, inStock, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, int64(198000), c.Subtotal)

	_, err = svc.Add(ctx, owner, draft, 1)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "PRODUCT_NOT_FOUND", appErr.Code)

	_, err = svc.Add(ctx, owner, uuid.New(), 1)
	require.Error(t, err)

	_, err = svc.Add(ctx, owner, inStock, 100)
	require.Error(t, err)

	_, err = svc.Add(ctx, owner, inStock, 6)
	appErr, ok = common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "OUT_OF_STOCK", appErr.Code)
}

func TestAddAccumulatesQty(t *testing.T) {
	cat, inStock, _ := fixture()
	svc := &Service{Repo: newMemRepo(cat), Catalog: cat}
	owner := Owner{GuestToken: uuid.NewString()}
	ctx := context.Background()

	_, err := svc.Add(ctx, owner, inStock, 2)
	require.NoError(t, err)
	c, err := svc.Add(ctx, owner, inStock, 3)
	require.NoError(t, err)
	require.Equal(t, int32(5), c.Items[0].Qty)
}

func TestSetQtyAndRemove(t *testing.T) {
	cat, inStock, _ := fixture()
	svc := &Service{Repo: newMemRepo(cat), Catalog: cat}
	owner := Owner{UserID: uuid.New()}
	ctx := context.Background()

	_, err := svc.Add(ctx, owner, inStock, 2)
	require.NoError(t, err)

	c, err := svc.SetQty(ctx, owner, inStock, 4)
	require.NoError(t, err)
	require.Equal(t, int32(4), c.Items[0].Qty)

	c, err = svc.SetQty(ctx, owner, inStock, 0)
	require.NoError(t, err)
	require.Empty(t, c.Items)

	_, err = svc.Remove(ctx, owner, inStock)
	require.Error(t, err)
}

func TestMergeGuestCart(t *testing.T) {
	cat, inStock, _ := fixture()
	repo := newMemRepo(cat)
	svc := &Service{Repo: repo, Catalog: cat}
	ctx := context.Background()

	guestToken := uuid.NewString()
	userID := uuid.New()

	_, err := svc.Add(ctx, Owner{GuestToken: guestToken}, inStock, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, Owner{UserID: userID}, inStock, 1)
	require.NoError(t, err)

	merged, err := svc.Merge(ctx, guestToken, userID)
	require.NoError(t, err)
	require.Len(t, merged.Items, 1)
	require.Equal(t, int32(3), merged.Items[0].Qty)

	// Guest cart is gone.
	guestCart, err := svc.Get(ctx, Owner{GuestToken: guestToken})
	require.NoError(t, err)
	require.Empty(t, guestCart.Items)
}

func TestMergeWithoutTokenJustReturnsUserCart(t *testing.T) {
	cat, inStock, _ := fixture()
	svc := &Service{Repo: newMemRepo(cat), Catalog: cat}
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Add(ctx, Owner{UserID: userID}, inStock, 1)
	require.NoError(t, err)

	c, err := svc.Merge(ctx, "", userID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
}
