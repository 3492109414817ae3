package result

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/parambench/parambench/internal/analyzer"
	"github.com/parambench/parambench/internal/config"
)

func TestRenderDatabase_InsertsRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	def := &config.DatabaseResult{
		File:      dbPath,
		TableName: "results",
		Keys:      []*config.ResultKey{{Name: "size"}, {Name: "runtime"}},
	}
	if err := renderDatabase(def, sampleRows()); err != nil {
		t.Fatalf("renderDatabase() error: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count); err != nil {
		t.Fatalf("count query error: %v", err)
	}
	if count != 2 {
		t.Fatalf("results row count = %d, want 2", count)
	}

	var runtime string
	if err := db.QueryRow(`SELECT runtime FROM results WHERE size = ?`, "1").Scan(&runtime); err != nil {
		t.Fatalf("select error: %v", err)
	}
	if runtime != "2.0" {
		t.Errorf("runtime = %q, want %q", runtime, "2.0")
	}
}

func TestRenderDatabase_UpsertsByPrimeKeys(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	def := &config.DatabaseResult{
		File:      dbPath,
		TableName: "results",
		PrimeKeys: "size",
		Keys:      []*config.ResultKey{{Name: "size"}, {Name: "runtime"}},
	}
	row := []*analyzer.Row{{Values: map[string]string{"size": "1", "runtime": "2.0"}}}
	if err := renderDatabase(def, row); err != nil {
		t.Fatalf("renderDatabase() error: %v", err)
	}

	updated := []*analyzer.Row{{Values: map[string]string{"size": "1", "runtime": "9.0"}}}
	if err := renderDatabase(def, updated); err != nil {
		t.Fatalf("renderDatabase() second call error: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count); err != nil {
		t.Fatalf("count query error: %v", err)
	}
	if count != 1 {
		t.Fatalf("results row count after upsert = %d, want 1 (update, not insert)", count)
	}

	var runtime string
	if err := db.QueryRow(`SELECT runtime FROM results WHERE size = ?`, "1").Scan(&runtime); err != nil {
		t.Fatalf("select error: %v", err)
	}
	if runtime != "9.0" {
		t.Errorf("runtime after upsert = %q, want %q", runtime, "9.0")
	}
}

func TestRenderDatabase_MissingTableNameErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	def := &config.DatabaseResult{File: dbPath}
	if err := renderDatabase(def, sampleRows()); err == nil {
		t.Fatal("renderDatabase() error = nil, want error when name attribute is missing")
	}
}

func TestRenderDatabase_RejectsChangedSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	def := &config.DatabaseResult{
		File:      dbPath,
		TableName: "results",
		Keys:      []*config.ResultKey{{Name: "size"}, {Name: "runtime"}},
	}
	if err := renderDatabase(def, sampleRows()); err != nil {
		t.Fatalf("renderDatabase() first run error: %v", err)
	}

	grown := &config.DatabaseResult{
		File:      dbPath,
		TableName: "results",
		Keys:      []*config.ResultKey{{Name: "size"}, {Name: "runtime"}, {Name: "note"}},
	}
	rows := []*analyzer.Row{{Values: map[string]string{"size": "3", "runtime": "4.0", "note": "x"}}}
	if err := renderDatabase(grown, rows); err == nil {
		t.Fatal("renderDatabase() with an added column error = nil, want a schema-mismatch error")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&count); err != nil {
		t.Fatalf("count query error: %v", err)
	}
	if count != 2 {
		t.Fatalf("results row count after rejected schema change = %d, want 2 (unchanged)", count)
	}
}
