// Command servermon-dbcheck inspects a servermon SQLite database: its
// tables, the snapshot count and any address stored more than once.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"servermon/internal/store/sqlite"
)

func main() {
	dbPath := os.Getenv("SERVERMON_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/servermon.db"
	}
	flag.StringVar(&dbPath, "db", dbPath, "path to the SQLite database")
	flag.Parse()

	db, err := sqlite.OpenDB(dbPath, sqlite.WithoutMigrations())
	if err != nil {
		log.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	dups, err := check(db, os.Stdout)
	if err != nil {
		log.Fatalf("check failed: %v", err)
	}
	if dups > 0 {
		os.Exit(1)
	}
}

// check prints the report to w and returns how many addresses have more
// than one row.
func check(db *sql.DB, w io.Writer) (int, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' ORDER BY name;`)
	if err != nil {
		return 0, err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	fmt.Fprintln(w, "Tables:")
	hasSnapshots := false
	for _, name := range tables {
		fmt.Fprintln(w, " -", name)
		if name == "health_snapshots" {
			hasSnapshots = true
		}
	}
	if !hasSnapshots {
		fmt.Fprintln(w, "health_snapshots missing (migrations not applied)")
		return 0, nil
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM health_snapshots;`).Scan(&n); err != nil {
		return 0, err
	}
	fmt.Fprintln(w, "Snapshots:", n)

	dupRows, err := db.Query(`
		SELECT server_ip, COUNT(*) FROM health_snapshots
		GROUP BY server_ip HAVING COUNT(*) > 1 ORDER BY server_ip;`)
	if err != nil {
		return 0, err
	}
	defer dupRows.Close()

	dups := 0
	for dupRows.Next() {
		var ip string
		var c int
		if err := dupRows.Scan(&ip, &c); err != nil {
			return dups, err
		}
		dups++
		fmt.Fprintf(w, "DUPLICATE server_ip %s: %d rows\n", ip, c)
	}
	if err := dupRows.Err(); err != nil {
		return dups, err
	}
	if dups == 0 {
		fmt.Fprintln(w, "server_ip uniqueness: ok")
	}
	return dups, nil
}
