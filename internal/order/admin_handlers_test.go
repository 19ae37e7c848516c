package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memSetter struct {
	repo  *memRepo
	calls int
}

func (s *memSetter) SetStatus(_ context.Context, id uuid.UUID, st Status) error {
	for code, o := range s.repo.orders {
		if o.ID == id {
			o.Status = st
			s.repo.orders[code] = o
			s.calls++
			return nil
		}
	}
	return ErrNotFound
}

func newAdminRouter(repo *memRepo) (*chi.Mux, *memSetter) {
	setter := &memSetter{repo: repo}
	h := &AdminHandler{Svc: newTestService(repo, &countingStore{}), Statuses: setter}
	r := chi.NewRouter()
	h.Routes(r)
	return r, setter
}

func patchStatusReq(code, status string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, "/"+code+"/status",
		strings.NewReader(`{"status":"`+status+`"}`))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPatchStatusCancelsOrder(t *testing.T) {
	repo := newMemRepo(created("A1", 50000))
	r, setter := newAdminRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, patchStatusReq("A1", "canceled"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"CANCELED"`)
	require.Equal(t, 1, setter.calls)
	require.Equal(t, StatusCanceled, repo.orders["A1"].Status)
}

func TestPatchStatusRefusesPaidEitherWay(t *testing.T) {
	paid := created("A2", 50000)
	paid.Status = StatusPaid
	repo := newMemRepo(paid, created("A3", 60000))
	r, setter := newAdminRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, patchStatusReq("A2", "canceled"))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, patchStatusReq("A3", "paid"))
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Zero(t, setter.calls)
	require.Equal(t, StatusPaid, repo.orders["A2"].Status)
	require.Equal(t, StatusCreated, repo.orders["A3"].Status)
}

func TestPatchStatusSameStatusIsNoop(t *testing.T) {
	repo := newMemRepo(created("A4", 10000))
	r, setter := newAdminRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, patchStatusReq("A4", "created"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, setter.calls)
}

func TestPatchStatusErrors(t *testing.T) {
	repo := newMemRepo(created("A5", 10000))
	r, _ := newAdminRouter(repo)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, patchStatusReq("MISSING", "canceled"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, patchStatusReq("A5", "shipped"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_STATUS")
}
