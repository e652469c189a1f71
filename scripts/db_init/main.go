package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	dbfs "github.com/garnizeh/hirehub/db"
	"github.com/garnizeh/hirehub/internal/config"
	"github.com/garnizeh/hirehub/internal/credential"
	"github.com/garnizeh/hirehub/internal/db"
	"github.com/garnizeh/hirehub/internal/repository/sqlite"
	"github.com/garnizeh/hirehub/pkg/models"
	"github.com/garnizeh/hirehub/pkg/repository"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	adminEmail := flag.String("admin-email", "", "Seed an admin account with this email")
	adminName := flag.String("admin-name", "Administrator", "Full name of the seeded admin")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	if *adminEmail != "" {
		// The password comes from the environment so it stays out of shell history.
		password := os.Getenv("HIREHUB_ADMIN_PASSWORD")
		if password == "" {
			fmt.Fprintln(os.Stderr, "HIREHUB_ADMIN_PASSWORD must be set to seed an admin")
			os.Exit(1)
		}
		if err := seedAdmin(ctx, sqlite.New(database, nil), cfg, *adminName, *adminEmail, password); err != nil {
			fmt.Fprintf(os.Stderr, "Seed error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Admin %s created.\n", *adminEmail)
	}

	fmt.Println("Database initialized successfully.")
}

func seedAdmin(ctx context.Context, accounts repository.AccountRepo, cfg *config.Config, name, email, password string) error {
	creds, err := credential.New(credential.Options{Secret: cfg.JWTSecret, Cost: cfg.BcryptCost})
	if err != nil {
		return err
	}
	hash, err := creds.Hash(password)
	if err != nil {
		return err
	}
	_, err = accounts.CreateAccount(ctx, &models.Account{
		FullName:     name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("an account with email %s already exists", email)
	}
	return err
}
