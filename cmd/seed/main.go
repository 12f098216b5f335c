// seed inserts local-dev users into the database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/cakely/auth-service/internal/domain"
	"github.com/cakely/auth-service/internal/infrastructure/postgres"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const seedPassword = "password123"

type userSpec struct {
	name     string
	email    string
	verified bool
}

var users = []userSpec{
	{"Verified Vera", "vera@test.local", true},
	{"Pending Pat", "pat@test.local", false},
}

func main() {
	ctx := context.Background()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	if err := postgres.RunMigrations(ctx, databaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	for _, spec := range users {
		u := &domain.User{
			ID:           uuid.NewString(),
			Name:         spec.name,
			Email:        spec.email,
			PasswordHash: string(hash),
			IsVerified:   spec.verified,
		}
		err := repo.Create(ctx, u)
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			fmt.Printf("skip %s (already seeded)\n", spec.email)
		case err != nil:
			log.Fatalf("seed %s: %v", spec.email, err)
		default:
			fmt.Printf("seeded %s (password %q, verified=%v)\n", spec.email, seedPassword, spec.verified)
		}
	}
}
