package result

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/config"
	"github.com/parambench/parambench/internal/errs"
)

// renderDatabase opens (creating if absent) a SQLite file and upserts
// each filtered row into the sink's table, matching rows to existing
// records by the primekeys column list. Uses the same driver+embed
// import pair and pragma tuning as a short-lived single-writer CLI
// process.
func renderDatabase(d *config.DatabaseResult, rows []*analyzer.Row) error {
	rows, err := filterRows(d.Filter, rows)
	if err != nil {
		return err
	}
	cols := keyColumns(d.Keys, rows)
	if d.TableName == "" {
		return errs.New(errs.Config, fmt.Errorf("database result: name attribute required"))
	}

	db, err := sql.Open("sqlite3", d.File)
	if err != nil {
		return errs.New(errs.Execution, fmt.Errorf("open database %q: %w", d.File, err))
	}
	defer db.Close()

	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return errs.New(errs.Execution, fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if err := ensureTable(db, d.TableName, cols); err != nil {
		return err
	}

	primeKeys := d.PrimeKeyList()
	tx, err := db.Begin()
	if err != nil {
		return errs.New(errs.Execution, fmt.Errorf("begin transaction: %w", err))
	}
	for _, row := range rows {
		if err := upsertRow(tx, d.TableName, cols, primeKeys, row); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.New(errs.Execution, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ensureTable creates the sink's table (all TEXT columns; type mapping
// is intentionally left to the SQL consumer) on first use. A table's
// schema is fixed at creation: a later run whose result definition
// names a different column set is rejected rather than migrated.
func ensureTable(db *sql.DB, table string, cols []column) error {
	colDefs := make([]string, len(cols))
	for i, c := range cols {
		colDefs[i] = quoteIdent(c.name) + " TEXT"
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(colDefs, ", "))
	if _, err := db.Exec(stmt); err != nil {
		return errs.New(errs.Execution, fmt.Errorf("create table %s: %w", table, err))
	}
	existing, err := tableColumns(db, table)
	if err != nil {
		return err
	}
	if len(existing) != len(cols) {
		return errs.New(errs.Config, fmt.Errorf("table %s has %d column(s), result declares %d: schema changes across runs are rejected", table, len(existing), len(cols)))
	}
	for _, c := range cols {
		if !existing[c.name] {
			return errs.New(errs.Config, fmt.Errorf("table %s has no column %q: schema changes across runs are rejected", table, c.name))
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, errs.New(errs.Execution, fmt.Errorf("table_info %s: %w", table, err))
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, errs.New(errs.Execution, fmt.Errorf("scan table_info: %w", err))
		}
		out[name] = true
	}
	return out, rows.Err()
}

// upsertRow inserts row, or updates it in place when every primeKeys
// column matches an existing record.
func upsertRow(tx *sql.Tx, table string, cols []column, primeKeys []string, row *analyzer.Row) error {
	if len(primeKeys) == 0 {
		return insertRow(tx, table, cols, row)
	}
	where := make([]string, len(primeKeys))
	args := make([]any, len(primeKeys))
	for i, k := range primeKeys {
		where[i] = quoteIdent(k) + " = ?"
		args[i] = lookupValue(cols, row, k)
	}
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", quoteIdent(table), strings.Join(where, " AND "))
	if err := tx.QueryRow(query, args...).Scan(&count); err != nil {
		return errs.New(errs.Execution, fmt.Errorf("upsert lookup: %w", err))
	}
	if count == 0 {
		return insertRow(tx, table, cols, row)
	}
	return updateRow(tx, table, cols, primeKeys, row)
}

func lookupValue(cols []column, row *analyzer.Row, name string) string {
	for _, c := range cols {
		if c.name == name {
			return cellValue(c, row)
		}
	}
	return row.Values[name]
}

func insertRow(tx *sql.Tx, table string, cols []column, row *analyzer.Row) error {
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.name)
		placeholders[i] = "?"
		args[i] = cellValue(c, row)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.Exec(stmt, args...); err != nil {
		return errs.New(errs.Execution, fmt.Errorf("insert into %s: %w", table, err))
	}
	return nil
}

func updateRow(tx *sql.Tx, table string, cols []column, primeKeys []string, row *analyzer.Row) error {
	primeSet := make(map[string]bool, len(primeKeys))
	for _, k := range primeKeys {
		primeSet[k] = true
	}
	var sets []string
	var args []any
	for _, c := range cols {
		if primeSet[c.name] {
			continue
		}
		sets = append(sets, quoteIdent(c.name)+" = ?")
		args = append(args, cellValue(c, row))
	}
	if len(sets) == 0 {
		return nil
	}
	where := make([]string, len(primeKeys))
	for i, k := range primeKeys {
		where[i] = quoteIdent(k) + " = ?"
		args = append(args, lookupValue(cols, row, k))
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quoteIdent(table), strings.Join(sets, ", "), strings.Join(where, " AND "))
	if _, err := tx.Exec(stmt, args...); err != nil {
		return errs.New(errs.Execution, fmt.Errorf("update %s: %w", table, err))
	}
	return nil
}

// quoteIdent double-quotes a SQL identifier, escaping embedded quotes;
// column/table names come from the benchmark config, not untrusted input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
