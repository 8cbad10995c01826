// Command provision creates an access credential and prints its secret.
// The secret is shown exactly once; only the bcrypt hash is stored.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"

	"github.com/moodlens/moodlens/internal/common"
	"github.com/moodlens/moodlens/internal/server/models"
	"github.com/moodlens/moodlens/internal/server/repositories/repomanager"
)

const secretBytes = 32

func main() {

	dsn := flag.String("d", "", "PostgreSQL DSN")
	label := flag.String("l", "", "credential label (e.g., the consuming bot)")
	rate := flag.Int("n", 30, "allowed requests per minute")
	validDays := flag.Int("e", 0, "expiry in days, 0 means no expiry")
	flag.Parse()

	if *dsn == "" || *label == "" {
		log.Fatal("both -d (DSN) and -l (label) are required")
	}

	ctx := context.Background()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	repos, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		log.Fatalf("repository init error: %v", err)
	}

	secret, err := common.MakeRandHexString(secretBytes)
	if err != nil {
		log.Fatalf("secret generation error: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("secret hashing error: %v", err)
	}

	cred := &models.AccessCredential{
		ID:            uuid.NewString(),
		SecretHash:    string(hash),
		Label:         *label,
		Active:        true,
		RatePerMinute: *rate,
		CreatedAt:     time.Now().UTC(),
	}
	if *validDays > 0 {
		expires := time.Now().UTC().AddDate(0, 0, *validDays)
		cred.ExpiresAt = &expires
	}

	created, err := repos.Credentials(db).Create(ctx, cred)
	if err != nil {
		log.Fatalf("credential insert error: %v", err)
	}

	fmt.Printf("credential %s (%s) created\n", created.ID, created.Label)
	fmt.Printf("secret (store it now, it is not retrievable): %s\n", secret)
}
