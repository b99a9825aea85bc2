package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	tables := []string{"credits", "ledger", "assets", "logistics", "orders", "settings", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestMigrateUp_SeedsHarvestLots(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	rows, err := db.Query("SELECT id FROM assets ORDER BY id")
	if err != nil {
		t.Fatalf("query assets: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}
	if len(ids) != 2 || ids[0] != "LOT-BITAM-02" || ids[1] != "LOT-NTOUM-01" {
		t.Errorf("seeded assets = %v, want [LOT-BITAM-02 LOT-NTOUM-01]", ids)
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM assets").Scan(&count); err != nil {
		t.Fatalf("count assets: %v", err)
	}
	if count != 2 {
		t.Errorf("assets after two migrations = %d, want 2 (no re-seeding)", count)
	}
}

func TestMigrateUp_UpgradeKeepsData(t *testing.T) {
	db := openTestDB(t)

	m, err := newMigrate(db)
	if err != nil {
		t.Fatalf("newMigrate() error = %v", err)
	}
	if err := m.Steps(1); err != nil {
		t.Fatalf("Steps(1) error = %v", err)
	}

	version, _, err := Version(db)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 1 {
		t.Fatalf("version after one step = %d, want 1", version)
	}

	if _, err := db.Exec(`INSERT INTO credits (id, doc) VALUES ('INV-1', '{"id":"INV-1"}')`); err != nil {
		t.Fatalf("insert credit: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	version, dirty, err := Version(db)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Version() = %d (dirty=%v), want 2 (clean)", version, dirty)
	}

	var doc string
	if err := db.QueryRow("SELECT doc FROM credits WHERE id = 'INV-1'").Scan(&doc); err != nil {
		t.Errorf("credit lost during upgrade: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM assets").Scan(&count); err != nil {
		t.Fatalf("count assets: %v", err)
	}
	if count != 2 {
		t.Errorf("assets after upgrade = %d, want 2", count)
	}
}

func TestVersion_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := Version(db)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("Version() = %d (dirty=%v), want 0", version, dirty)
	}
}

func TestLatestVersion(t *testing.T) {
	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if latest != 2 {
		t.Errorf("LatestVersion() = %d, want 2", latest)
	}
}

func TestSchema_KeyUnique(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO ledger (id, doc) VALUES ('L1', '{}')`); err != nil {
		t.Fatalf("Failed to insert first entry: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO ledger (id, doc) VALUES ('L1', '{}')`); err == nil {
		t.Error("Expected primary key violation for duplicate id, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database on a single connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
