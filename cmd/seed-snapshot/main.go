// seed-snapshot — debug CLI that dumps a quick row-count summary of one
// school's scheduling entities, for operators poking at a database before
// triggering a real generation. It talks to Postgres over database/sql via
// lib/pq instead of the server's pgx/sqlx pool: a second, throwaway
// connection is cheaper to reason about for a one-shot tool than wiring the
// server's pool lifecycle into a CLI.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/slymn80/timetables/internal/config"
)

func main() {
	schoolID := flag.String("school", "", "school id (uuid) to summarise")
	flag.Parse()

	if *schoolID == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-snapshot -school <uuid>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(db, *schoolID); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// entityCount is one row of the summary: a table name and how many rows in
// it reference the requested school, active or not.
type entityCount struct {
	table string
	count int
}

func run(db *sql.DB, schoolID string) error {
	tables := []string{"teachers", "classes", "subjects", "rooms", "time_slots", "lessons"}
	counts := make([]entityCount, 0, len(tables))

	for _, table := range tables {
		var n int
		query := fmt.Sprintf("SELECT count(*) FROM %s WHERE school_id = $1", table)
		if err := db.QueryRow(query, schoolID).Scan(&n); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		counts = append(counts, entityCount{table: table, count: n})
	}

	fmt.Printf("school %s\n", schoolID)
	for _, c := range counts {
		fmt.Printf("  %-12s %d\n", c.table, c.count)
	}
	return nil
}
