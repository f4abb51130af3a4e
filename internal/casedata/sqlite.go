package casedata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTable is the county table name used by OpenSQLite and SaveSQLite.
const DefaultTable = "counties"

const dateColumnLayout = "2006-01-02"

const schema = `CREATE TABLE IF NOT EXISTS %s (
	county         TEXT NOT NULL,
	fips           TEXT,
	cluster_labels TEXT NOT NULL,
	confirmed      REAL DEFAULT 0,
	active         REAL DEFAULT 0,
	deaths         REAL DEFAULT 0,
	recovered      REAL DEFAULT 0,
	average        REAL DEFAULT 0,
	population     REAL DEFAULT 0,
	date           TEXT
)`

// OpenSQLite reads the county table from a SQLite file opened read-only.
func OpenSQLite(ctx context.Context, path string) (*Table, error) {
	db, err := openReadOnly(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return ReadDB(ctx, db, DefaultTable)
}

func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ReadDB loads every row of table from an open database.
func ReadDB(ctx context.Context, db *sql.DB, table string) (*Table, error) {
	q := fmt.Sprintf(`SELECT county, COALESCE(fips, ''), cluster_labels,
		COALESCE(confirmed, 0), COALESCE(active, 0), COALESCE(deaths, 0),
		COALESCE(recovered, 0), COALESCE(average, 0), COALESCE(population, 0),
		COALESCE(date, '') FROM %s ORDER BY rowid`, table)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r    Row
			date string
		)
		if err := rows.Scan(&r.County, &r.FIPS, &r.Cluster, &r.Confirmed, &r.Active,
			&r.Deaths, &r.Recovered, &r.Average, &r.Population, &date); err != nil {
			return nil, err
		}
		r.FIPS = normalizeFIPS(r.FIPS)
		r.Cluster = normalizeLabel(r.Cluster)
		if date != "" {
			d, err := parseDate(date)
			if err != nil {
				return nil, fmt.Errorf("county %q: %w", r.County, err)
			}
			r.Date = d
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &Table{rows: out}, nil
}

// SaveSQLite writes the table into a SQLite file, replacing any existing
// county rows.
func SaveSQLite(ctx context.Context, path string, t *Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(schema, DefaultTable)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+DefaultTable); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+DefaultTable+`
		(county, fips, cluster_labels, confirmed, active, deaths, recovered, average, population, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range t.rows {
		if _, err := stmt.ExecContext(ctx, r.County, r.FIPS, r.Cluster, r.Confirmed, r.Active,
			r.Deaths, r.Recovered, r.Average, r.Population, formatDate(r.Date)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateColumnLayout)
}
