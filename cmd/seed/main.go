package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"reseller-billing/internal/config"
	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/infra/api"
	pg "reseller-billing/internal/infra/db/postgres"
)

// seed creates (or promotes) an administrator account and prints a bearer
// token for it, so a fresh deployment can be driven over the API.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	id := flag.String("id", "admin", "account id (token subject)")
	email := flag.String("email", "admin@example.com", "admin email")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	accounts := pg.NewAccountRepo(pool)

	acc, err := accounts.FindByID(ctx, nil, *id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		acc, err = model.NewAccount(*id, *email, "Administrator")
		if err != nil {
			log.Fatalf("new account: %v", err)
		}
		if _, err := accounts.Create(ctx, nil, acc); err != nil {
			log.Fatalf("create account: %v", err)
		}
	case err != nil:
		log.Fatalf("find account: %v", err)
	}

	if acc.Role == model.RoleAdmin {
		fmt.Printf("%s is already an admin. No changes.\n", acc.ID)
	} else {
		if err := accounts.UpdateRole(ctx, nil, acc.ID, model.RoleAdmin); err != nil {
			log.Fatalf("promote account: %v", err)
		}
		fmt.Printf("seeded admin: %s (%s)\n", acc.ID, acc.Email)
	}

	tok, err := api.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Mint(acc.ID, acc.Email, *tokenTTL)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("token: %s\n", tok)
}
