package repository

import (
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverSQLite3  = "sqlite3" // mattn/go-sqlite3, cgo
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverPostgres = "pgx"     // jackc/pgx stdlib
)

// dialect captures the few SQL differences between the supported engines
type dialect struct {
	name         string
	identity     string
	float        string
	numbered     bool // $1 style placeholders
	singleWriter bool
}

func dialectFor(driver string) (dialect, bool) {
	switch driver {
	case DriverSQLite3, DriverSQLite:
		return dialect{
			name:         driver,
			identity:     "INTEGER PRIMARY KEY AUTOINCREMENT",
			float:        "REAL",
			singleWriter: true,
		}, true
	case DriverPostgres:
		return dialect{
			name:     driver,
			identity: "BIGSERIAL PRIMARY KEY",
			float:    "DOUBLE PRECISION",
			numbered: true,
		}, true
	}
	return dialect{}, false
}

// rebind rewrites ? placeholders into the dialect's style
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schema returns the CREATE statements for all observation tables
func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS waste_data (
			id ` + d.identity + `,
			filename TEXT NOT NULL,
			classification TEXT NOT NULL,
			recommended_action TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drainage_data (
			id ` + d.identity + `,
			location TEXT NOT NULL,
			flow_status TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chemical_waste (
			id ` + d.identity + `,
			chemical_name TEXT NOT NULL,
			ph_level ` + d.float + ` NOT NULL,
			recommendation TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS forest_cover (
			id ` + d.identity + `,
			vegetation_index ` + d.float + ` NOT NULL,
			alert_level TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}
}
