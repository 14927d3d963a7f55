package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"merchant-checkout/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up, down or list")
	steps := flag.Int("steps", 1, "number of migrations to roll back in down mode")
	flag.Parse()

	open := func() (*sql.DB, error) {
		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			return nil, fmt.Errorf("DB_URL not set in environment")
		}
		return db.NewDatabase(dbURL)
	}

	if err := run(*mode, *steps, open, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(mode string, steps int, open func() (*sql.DB, error), out io.Writer) error {
	switch mode {
	case "list":
		names, err := db.MigrationNames()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(out, n)
		}
		return nil
	case "up", "down":
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'list')", mode)
	}

	if mode == "down" && steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", steps)
	}

	conn, err := open()
	if err != nil {
		return err
	}
	defer conn.Close()

	if mode == "up" {
		if err := db.MigrateUp(conn); err != nil {
			return err
		}
		fmt.Fprintln(out, "all migrations applied")
		return nil
	}

	if err := db.MigrateDown(conn, steps); err != nil {
		return err
	}
	fmt.Fprintf(out, "rolled back %d migration(s)\n", steps)
	return nil
}
