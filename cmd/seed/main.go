package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo account plus a starter document so a fresh environment has
// something to open in the editor. Safe to re-run; the insert is skipped if
// the email already exists.
var (
	email    = flag.String("email", "demo@studybuddy.local", "Email for the seeded account")
	password = flag.String("password", "demo-password", "Password for the seeded account")
	dsn      = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	var exists bool
	err = conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM app_auth.users WHERE email = $1)`, *email).Scan(&exists)
	if err != nil {
		fatalf("lookup: %v", err)
	}
	if exists {
		fmt.Printf("User %s already seeded, nothing to do\n", *email)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fatalf("bcrypt: %v", err)
	}

	userID := uuid.New().String()
	_, err = conn.ExecContext(ctx,
		`INSERT INTO app_auth.users (user_id, email, hashed_password) VALUES ($1, $2, $3)`,
		userID, *email, string(hashed))
	if err != nil {
		fatalf("insert user: %v", err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO app_documents.documents (id, user_id, title, content, tags)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), userID, "Welcome",
		"# Welcome to study-buddy\n\nStart typing markdown on the left and watch the preview update.",
		"{getting-started}")
	if err != nil {
		fatalf("insert document: %v", err)
	}

	fmt.Printf("Seeded %s (user_id %s)\n", *email, userID)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
