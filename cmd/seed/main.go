// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the admin user already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"skald/backend/internal/config"
	"skald/backend/internal/db"
	knowledgedomain "skald/backend/internal/knowledge/domain"
	knowledgerepo "skald/backend/internal/knowledge/repository"
	membershipdomain "skald/backend/internal/membership/domain"
	membershiprepo "skald/backend/internal/membership/repository"
	productdomain "skald/backend/internal/product/domain"
	productrepo "skald/backend/internal/product/repository"
	"skald/backend/internal/security"
	userdomain "skald/backend/internal/user/domain"
	userrepo "skald/backend/internal/user/repository"
)

const (
	adminUsername = "admin"
	devPassword   = "password123"

	adminUserID     = "dev-user-admin"
	managerUserID   = "dev-user-manager"
	viewerUserID    = "dev-user-viewer"
	devProductID    = "dev-product-001"
	devDomainID     = "dev-domain-001"
	devSubDomainID  = "dev-subdomain-001"
	devCapabilityID = "dev-capability-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()
	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByUsername(ctx, adminUsername)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (admin exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	seedUsers := []*userdomain.User{
		{ID: adminUserID, Username: adminUsername, Email: "admin@example.com", Name: "Admin", PasswordHash: passwordHash, Superuser: true, CreatedAt: now, UpdatedAt: now},
		{ID: managerUserID, Username: "manager", Email: "manager@example.com", Name: "Manager User", PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now},
		{ID: viewerUserID, Username: "viewer", Email: "viewer@example.com", Name: "Viewer User", PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now},
	}
	for _, u := range seedUsers {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Username, err)
		}
	}

	products := productrepo.NewPostgresRepository(conn)
	if err := products.Create(ctx, &productdomain.Product{
		ID:          devProductID,
		Name:        "Payments",
		Description: "Development sample product",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		log.Fatalf("create product: %v", err)
	}

	memberships := membershiprepo.NewPostgresRepository(conn)
	seedMembers := []*membershipdomain.Membership{
		{ID: "dev-membership-001", UserID: managerUserID, ProductID: devProductID, Role: membershipdomain.RoleManager, CreatedAt: now},
		{ID: "dev-membership-002", UserID: viewerUserID, ProductID: devProductID, Role: membershipdomain.RoleViewer, CreatedAt: now},
	}
	for _, m := range seedMembers {
		if _, err := memberships.Upsert(ctx, m); err != nil {
			log.Fatalf("create membership for %s: %v", m.UserID, err)
		}
	}

	knowledge := knowledgerepo.NewPostgresRepository(conn)
	if err := knowledge.CreateDomain(ctx, &knowledgedomain.Domain{
		ID:        devDomainID,
		ProductID: devProductID,
		Name:      "Card Processing",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		log.Fatalf("create domain: %v", err)
	}
	if err := knowledge.CreateSubDomain(ctx, &knowledgedomain.SubDomain{
		ID:        devSubDomainID,
		DomainID:  devDomainID,
		Name:      "Authorization",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		log.Fatalf("create subdomain: %v", err)
	}
	if err := knowledge.CreateCapability(ctx, &knowledgedomain.Capability{
		ID:          devCapabilityID,
		SubDomainID: devSubDomainID,
		Name:        "3DS Challenge",
		Description: "Step-up verification for card-not-present payments",
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		log.Fatalf("create capability: %v", err)
	}

	log.Println("Seed applied: users admin/manager/viewer (password password123), product Payments with a sample knowledge tree.")
}
