package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd reads the audit index directly, for when the server is not running.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	actor := fs.String("actor", "", "actor filter (audits)")
	_ = fs.Parse(args)

	q := "audits"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "audits":
		err = queryAudits(db, *actor, *limit)
	case "catalogs":
		err = queryCatalogs(db)
	default:
		err = fmt.Errorf("unknown query %q (want audits|catalogs)", q)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

// queryAudits prints the newest entries, newest first.
func queryAudits(db *sql.DB, actor string, limit int) error {
	q := `SELECT raw_json FROM audits ORDER BY seq DESC LIMIT ?`
	args := []any{limit}
	if actor != "" {
		q = `SELECT raw_json FROM audits WHERE actor = ? ORDER BY seq DESC LIMIT ?`
		args = []any{actor, limit}
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		fmt.Println(raw)
	}
	return rows.Err()
}

func queryCatalogs(db *sql.DB) error {
	rows, err := db.Query(`SELECT name, digest FROM catalogs ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name, digest string
		if err := rows.Scan(&name, &digest); err != nil {
			return err
		}
		printJSON(map[string]string{"name": name, "digest": digest})
	}
	return rows.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
