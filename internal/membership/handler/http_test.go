package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"skald/backend/internal/membership/domain"
	"skald/backend/internal/platform/rbac"
	productdomain "skald/backend/internal/product/domain"
	"skald/backend/internal/server/middleware"
	userdomain "skald/backend/internal/user/domain"
)

type fakeRepo struct {
	// keyed by userID + "/" + productID
	memberships map[string]*domain.Membership
}

func (f *fakeRepo) GetByUserAndProduct(_ context.Context, userID, productID string) (*domain.Membership, error) {
	return f.memberships[userID+"/"+productID], nil
}

func (f *fakeRepo) ListByProduct(_ context.Context, productID string) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for _, m := range f.memberships {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) Upsert(_ context.Context, m *domain.Membership) (*domain.Membership, error) {
	key := m.UserID + "/" + m.ProductID
	if existing, ok := f.memberships[key]; ok {
		existing.Role = m.Role
		return existing, nil
	}
	cp := *m
	f.memberships[key] = &cp
	return &cp, nil
}

func (f *fakeRepo) DeleteByUserAndProduct(_ context.Context, userID, productID string) (bool, error) {
	key := userID + "/" + productID
	if _, ok := f.memberships[key]; !ok {
		return false, nil
	}
	delete(f.memberships, key)
	return true, nil
}

type fakeProducts struct {
	products map[string]*productdomain.Product
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*productdomain.Product, error) {
	return f.products[id], nil
}

type fakeUsers struct {
	users map[string]*userdomain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, _ string) (*userdomain.User, error) {
	return nil, nil
}

func (f *fakeUsers) Create(_ context.Context, _ *userdomain.User) error { return nil }

type fixture struct {
	router chi.Router
	repo   *fakeRepo
}

func newFixture(t *testing.T, id rbac.Identity) *fixture {
	t.Helper()
	repo := &fakeRepo{memberships: map[string]*domain.Membership{
		"u-manager/prod-1": {ID: "m-1", UserID: "u-manager", ProductID: "prod-1", Role: domain.RoleManager},
		"u-viewer/prod-1":  {ID: "m-2", UserID: "u-viewer", ProductID: "prod-1", Role: domain.RoleViewer},
	}}
	products := &fakeProducts{products: map[string]*productdomain.Product{
		"prod-1": {ID: "prod-1", Name: "Payments", Active: true},
	}}
	users := &fakeUsers{users: map[string]*userdomain.User{
		"u-manager": {ID: "u-manager", Username: "manager"},
		"u-viewer":  {ID: "u-viewer", Username: "viewer"},
		"u-new":     {ID: "u-new", Username: "newcomer"},
	}}

	h := NewHandler(rbac.NewGate(products, repo), repo, users, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), id)))
		})
	})
	h.Routes(r)
	return &fixture{router: r, repo: repo}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestList_Manager(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodGet, "/products/prod-1/members", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("len = %d, want 2", len(out))
	}
}

func TestList_ViewerForbidden(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-viewer"})
	rec := f.do(t, http.MethodGet, "/products/prod-1/members", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAssign_NewMember(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodPost, "/products/prod-1/members", map[string]string{"user_id": "u-new", "role": "contributor"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	m := f.repo.memberships["u-new/prod-1"]
	if m == nil || m.Role != domain.RoleContributor {
		t.Fatalf("membership = %+v", m)
	}
}

func TestAssign_ReplacesRoleInPlace(t *testing.T) {
	// Assigning a role the user already holds is not a conflict; the role is
	// replaced and the row count stays at one.
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodPut, "/products/prod-1/members/u-viewer", map[string]string{"role": "contributor"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	if got := f.repo.memberships["u-viewer/prod-1"].Role; got != domain.RoleContributor {
		t.Errorf("role = %q, want contributor", got)
	}
	if len(f.repo.memberships) != 2 {
		t.Errorf("memberships = %d, want 2", len(f.repo.memberships))
	}
}

func TestAssign_GateRunsBeforeBodyDecode(t *testing.T) {
	// A caller the gate rejects sees 403 even with a malformed body; input is
	// never inspected ahead of authorization.
	f := newFixture(t, rbac.Identity{UserID: "u-viewer"})
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/products/prod-1/members"},
		{http.MethodPut, "/products/prod-1/members/u-new"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want 403", tc.method, tc.path, rec.Code)
		}
	}
	if len(f.repo.memberships) != 2 {
		t.Errorf("memberships = %d, want 2 untouched rows", len(f.repo.memberships))
	}
}

func TestAssign_Superuser(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-root", Superuser: true})
	rec := f.do(t, http.MethodPost, "/products/prod-1/members", map[string]string{"user_id": "u-new", "role": "manager"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
}

func TestAssign_InvalidRole(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodPost, "/products/prod-1/members", map[string]string{"user_id": "u-new", "role": "owner"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestAssign_UnknownUser(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodPost, "/products/prod-1/members", map[string]string{"user_id": "u-ghost", "role": "viewer"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodDelete, "/products/prod-1/members/u-viewer", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.repo.memberships["u-viewer/prod-1"] != nil {
		t.Error("membership should be removed")
	}
}

func TestRemove_Absent(t *testing.T) {
	f := newFixture(t, rbac.Identity{UserID: "u-manager"})
	rec := f.do(t, http.MethodDelete, "/products/prod-1/members/u-ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
