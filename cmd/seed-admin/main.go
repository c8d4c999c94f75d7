package main

import (
	"context"
	"flag"
	"log"
	"os"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
)

// Seeds the first login for a store. Run once per deployment:
//
//	go run ./cmd/seed-admin -username owner -password <secret>
func main() {
	username := flag.String("username", os.Getenv("SEED_USERNAME"), "login name for the seeded user")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "password for the seeded user (min 8 chars)")
	accountId := flag.String("account-id", "", "existing account to attach to; empty mints a new account")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("username and password are required")
	}
	if len(*password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	user, err := models.CreateUser(context.Background(), &models.NewUser{
		Username:  *username,
		Password:  *password,
		AccountId: *accountId,
	})
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Printf("seeded user %q (account_id=%s)", user.Username, user.AccountId)
}
