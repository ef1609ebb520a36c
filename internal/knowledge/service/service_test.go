package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"skald/backend/internal/knowledge/domain"
	"skald/backend/internal/platform/apperror"
	productdomain "skald/backend/internal/product/domain"
)

// fakeRepo is an in-memory Repository that mirrors the database guarantees
// the service relies on: sibling-name uniqueness under a mutex, parent-scoped
// reads, and all-or-nothing subtree deletes.
type fakeRepo struct {
	mu           sync.Mutex
	domains      map[string]*domain.Domain
	subdomains   map[string]*domain.SubDomain
	capabilities map[string]*domain.Capability
	failAll      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		domains:      make(map[string]*domain.Domain),
		subdomains:   make(map[string]*domain.SubDomain),
		capabilities: make(map[string]*domain.Capability),
	}
}

func (f *fakeRepo) GetDomain(ctx context.Context, productID, domainID string) (*domain.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	d := f.domains[domainID]
	if d == nil || d.ProductID != productID {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) ListDomains(ctx context.Context, productID string) ([]*domain.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []*domain.Domain
	for _, d := range f.domains {
		if d.ProductID == productID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateDomain(ctx context.Context, d *domain.Domain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for _, existing := range f.domains {
		if existing.ProductID == d.ProductID && existing.Name == d.Name {
			return domain.ErrDuplicateName
		}
	}
	cp := *d
	f.domains[d.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateDomain(ctx context.Context, d *domain.Domain) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	existing := f.domains[d.ID]
	if existing == nil {
		return false, nil
	}
	for _, other := range f.domains {
		if other.ID != d.ID && other.ProductID == existing.ProductID && other.Name == d.Name {
			return false, domain.ErrDuplicateName
		}
	}
	existing.Name = d.Name
	existing.Description = d.Description
	return true, nil
}

func (f *fakeRepo) DeleteDomainTree(ctx context.Context, domainID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	if f.domains[domainID] == nil {
		return false, nil
	}
	for sdID, sd := range f.subdomains {
		if sd.DomainID != domainID {
			continue
		}
		for cID, c := range f.capabilities {
			if c.SubDomainID == sdID {
				delete(f.capabilities, cID)
			}
		}
		delete(f.subdomains, sdID)
	}
	delete(f.domains, domainID)
	return true, nil
}

func (f *fakeRepo) GetSubDomain(ctx context.Context, domainID, subdomainID string) (*domain.SubDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	sd := f.subdomains[subdomainID]
	if sd == nil || sd.DomainID != domainID {
		return nil, nil
	}
	cp := *sd
	return &cp, nil
}

func (f *fakeRepo) ListSubDomains(ctx context.Context, domainID string) ([]*domain.SubDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []*domain.SubDomain
	for _, sd := range f.subdomains {
		if sd.DomainID == domainID {
			cp := *sd
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateSubDomain(ctx context.Context, sd *domain.SubDomain) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for _, existing := range f.subdomains {
		if existing.DomainID == sd.DomainID && existing.Name == sd.Name {
			return domain.ErrDuplicateName
		}
	}
	cp := *sd
	f.subdomains[sd.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateSubDomain(ctx context.Context, sd *domain.SubDomain) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	existing := f.subdomains[sd.ID]
	if existing == nil {
		return false, nil
	}
	for _, other := range f.subdomains {
		if other.ID != sd.ID && other.DomainID == existing.DomainID && other.Name == sd.Name {
			return false, domain.ErrDuplicateName
		}
	}
	existing.Name = sd.Name
	existing.Description = sd.Description
	return true, nil
}

func (f *fakeRepo) DeleteSubDomainTree(ctx context.Context, subdomainID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	if f.subdomains[subdomainID] == nil {
		return false, nil
	}
	for cID, c := range f.capabilities {
		if c.SubDomainID == subdomainID {
			delete(f.capabilities, cID)
		}
	}
	delete(f.subdomains, subdomainID)
	return true, nil
}

func (f *fakeRepo) GetCapability(ctx context.Context, subdomainID, capabilityID string) (*domain.Capability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	c := f.capabilities[capabilityID]
	if c == nil || c.SubDomainID != subdomainID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) ListCapabilities(ctx context.Context, subdomainID string) ([]*domain.Capability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []*domain.Capability
	for _, c := range f.capabilities {
		if c.SubDomainID == subdomainID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateCapability(ctx context.Context, c *domain.Capability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for _, existing := range f.capabilities {
		if existing.SubDomainID == c.SubDomainID && existing.Name == c.Name {
			return domain.ErrDuplicateName
		}
	}
	cp := *c
	f.capabilities[c.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateCapability(ctx context.Context, c *domain.Capability) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	existing := f.capabilities[c.ID]
	if existing == nil {
		return false, nil
	}
	for _, other := range f.capabilities {
		if other.ID != c.ID && other.SubDomainID == existing.SubDomainID && other.Name == c.Name {
			return false, domain.ErrDuplicateName
		}
	}
	existing.Name = c.Name
	existing.Description = c.Description
	return true, nil
}

func (f *fakeRepo) DeleteCapability(ctx context.Context, capabilityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, f.failAll
	}
	if f.capabilities[capabilityID] == nil {
		return false, nil
	}
	delete(f.capabilities, capabilityID)
	return true, nil
}

func testProduct(id string) *productdomain.Product {
	now := time.Now().UTC()
	return &productdomain.Product{ID: id, Name: "Acme", Active: true, CreatedAt: now, UpdatedAt: now}
}

func TestCreateDomain(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")

	d, err := svc.CreateDomain(context.Background(), p, "Billing", "money flows")
	if err != nil {
		t.Fatalf("CreateDomain: %v", err)
	}
	if d.ID == "" || d.ProductID != "p1" || d.Name != "Billing" {
		t.Errorf("created domain = %+v", d)
	}
}

func TestCreateDomain_DuplicateName(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")
	ctx := context.Background()

	if _, err := svc.CreateDomain(ctx, p, "Billing", ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateDomain(ctx, p, "Billing", "")
	ve, ok := apperror.IsValidation(err)
	if !ok {
		t.Fatalf("second create: got %v, want ValidationError", err)
	}
	if ve.Field != "name" {
		t.Errorf("validation field = %q, want %q", ve.Field, "name")
	}
}

func TestCreateDomain_SameNameUnderDifferentProducts(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	if _, err := svc.CreateDomain(ctx, testProduct("p1"), "Login", ""); err != nil {
		t.Fatalf("create under p1: %v", err)
	}
	// Uniqueness is scoped to the parent, not global.
	if _, err := svc.CreateDomain(ctx, testProduct("p2"), "Login", ""); err != nil {
		t.Fatalf("create under p2: %v", err)
	}
}

func TestCreateDomain_EmptyName(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.CreateDomain(context.Background(), testProduct("p1"), "", "")
	ve, ok := apperror.IsValidation(err)
	if !ok || ve.Field != "name" {
		t.Fatalf("empty name: got %v, want ValidationError on name", err)
	}
}

func TestCreateDomain_ConcurrentSameName(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.CreateDomain(ctx, p, "Payments", "")
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		default:
			if _, ok := apperror.IsValidation(err); ok {
				conflicts++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Errorf("successes = %d, conflicts = %d; want exactly 1 and 1", successes, conflicts)
	}
}

func TestResolveDomain_CrossProductScope(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	d, err := svc.CreateDomain(ctx, testProduct("p1"), "Billing", "")
	if err != nil {
		t.Fatalf("CreateDomain: %v", err)
	}

	// The domain exists, but not under p2: must look exactly like a missing id.
	_, err = svc.ResolveDomain(ctx, testProduct("p2"), d.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("cross-product resolve: got %v, want ErrNotFound", err)
	}
}

func TestUpdateDomain(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")
	ctx := context.Background()

	d, err := svc.CreateDomain(ctx, p, "Billing", "old")
	if err != nil {
		t.Fatalf("CreateDomain: %v", err)
	}
	updated, err := svc.UpdateDomain(ctx, p, d.ID, "Invoicing", "new")
	if err != nil {
		t.Fatalf("UpdateDomain: %v", err)
	}
	if updated.Name != "Invoicing" || updated.Description != "new" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUpdateDomain_RenameConflict(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")
	ctx := context.Background()

	if _, err := svc.CreateDomain(ctx, p, "Billing", ""); err != nil {
		t.Fatal(err)
	}
	d2, err := svc.CreateDomain(ctx, p, "Payments", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.UpdateDomain(ctx, p, d2.ID, "Billing", "")
	ve, ok := apperror.IsValidation(err)
	if !ok || ve.Field != "name" {
		t.Fatalf("rename onto sibling: got %v, want ValidationError on name", err)
	}
}

func TestDeleteDomain_CascadesWholeSubtree(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	p := testProduct("p1")
	ctx := context.Background()

	d, err := svc.CreateDomain(ctx, p, "Billing", "")
	if err != nil {
		t.Fatal(err)
	}
	sd, err := svc.CreateSubDomain(ctx, d, "Invoices", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateCapability(ctx, sd, "Send", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateCapability(ctx, sd, "Void", ""); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDomain(ctx, p, d.ID); err != nil {
		t.Fatalf("DeleteDomain: %v", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.domains) != 0 || len(repo.subdomains) != 0 || len(repo.capabilities) != 0 {
		t.Errorf("orphans after cascade: domains=%d subdomains=%d capabilities=%d",
			len(repo.domains), len(repo.subdomains), len(repo.capabilities))
	}
}

func TestDeleteSubDomain_CascadesCapabilities(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	p := testProduct("p1")
	ctx := context.Background()

	d, _ := svc.CreateDomain(ctx, p, "Billing", "")
	sd, _ := svc.CreateSubDomain(ctx, d, "Invoices", "")
	sibling, _ := svc.CreateSubDomain(ctx, d, "Refunds", "")
	if _, err := svc.CreateCapability(ctx, sd, "Send", ""); err != nil {
		t.Fatal(err)
	}
	kept, err := svc.CreateCapability(ctx, sibling, "Approve", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteSubDomain(ctx, d, sd.ID); err != nil {
		t.Fatalf("DeleteSubDomain: %v", err)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.capabilities) != 1 {
		t.Fatalf("capabilities = %d, want 1 (sibling subtree untouched)", len(repo.capabilities))
	}
	if repo.capabilities[kept.ID] == nil {
		t.Error("sibling capability deleted by unrelated cascade")
	}
}

func TestResolveSubDomain_WrongParent(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")
	ctx := context.Background()

	d1, _ := svc.CreateDomain(ctx, p, "Billing", "")
	d2, _ := svc.CreateDomain(ctx, p, "Shipping", "")
	sd, err := svc.CreateSubDomain(ctx, d1, "Invoices", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.ResolveSubDomain(ctx, d2, sd.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("subdomain under wrong domain: got %v, want ErrNotFound", err)
	}
}

func TestCapabilityLifecycle(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := testProduct("p1")
	ctx := context.Background()

	d, _ := svc.CreateDomain(ctx, p, "Billing", "")
	sd, _ := svc.CreateSubDomain(ctx, d, "Invoices", "")

	c, err := svc.CreateCapability(ctx, sd, "Send", "emails an invoice")
	if err != nil {
		t.Fatalf("CreateCapability: %v", err)
	}

	if _, err := svc.CreateCapability(ctx, sd, "Send", ""); err == nil {
		t.Error("duplicate capability name should fail")
	}

	updated, err := svc.UpdateCapability(ctx, sd, c.ID, "Dispatch", "")
	if err != nil {
		t.Fatalf("UpdateCapability: %v", err)
	}
	if updated.Name != "Dispatch" {
		t.Errorf("name = %q, want Dispatch", updated.Name)
	}

	if err := svc.DeleteCapability(ctx, sd, c.ID); err != nil {
		t.Fatalf("DeleteCapability: %v", err)
	}
	if err := svc.DeleteCapability(ctx, sd, c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func isIntegrity(err error) bool {
	_, ok := apperror.IsIntegrity(err)
	return ok
}

func TestStorageFailureSurfacesAsIntegrity(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	p := testProduct("p1")
	ctx := context.Background()

	repo.failAll = errors.New("connection reset")

	if _, err := svc.CreateDomain(ctx, p, "Billing", ""); !isIntegrity(err) {
		t.Errorf("create during outage: got %v, want IntegrityError", err)
	}
	if _, err := svc.ListDomains(ctx, p); !isIntegrity(err) {
		t.Errorf("list during outage: got %v, want IntegrityError", err)
	}
}
