package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/kevin07696/stripe-payment-service/internal/db/migrations"
)

const dialect = "postgres"

var (
	flags = flag.NewFlagSet("migrate", flag.ExitOnError)
	dir   = flags.String("dir", "", "read migrations from this directory instead of the embedded set")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		os.Exit(2)
	}
	command := args[0]

	// .env is optional; real deployments inject the variables directly
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", dsn())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	if err := goose.SetDialect(dialect); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	migrationsDir := *dir
	if migrationsDir == "" {
		goose.SetBaseFS(migrations.FS)
		migrationsDir = "."
	}

	if err := goose.RunContext(ctx, command, db, migrationsDir, args[1:]...); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}
}

// dsn prefers DATABASE_URL and falls back to the DB_* variables the server reads
func dsn() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "stripe_payments"),
		getEnv("DB_SSL_MODE", "disable"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: migrate [-dir DIR] COMMAND

Applies the payment_transactions and stripe_webhook_events schema.

Commands:
    up                   Apply every pending migration
    up-by-one            Apply the next pending migration
    up-to VERSION        Migrate to a specific VERSION
    down                 Roll back the latest migration
    down-to VERSION      Roll back to a specific VERSION
    redo                 Roll back and re-apply the latest migration
    reset                Roll back all migrations
    status               Print the migration status
    version              Print the current schema version

Environment:
    DATABASE_URL, or DB_HOST DB_PORT DB_USER DB_PASSWORD DB_NAME DB_SSL_MODE
`)
}
