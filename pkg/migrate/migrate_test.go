package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/ims-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ims-backend/pkg/migrate"
)

func readMigration(t *testing.T, dialect, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", dialect, "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found for %s", suffix, dialect)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestAssignmentsMigrationContainsConstraints(t *testing.T) {
	for _, dialect := range []string{"postgres", "sqlite"} {
		content := readMigration(t, dialect, "create_assignments")
		checks := []string{
			"CREATE TABLE IF NOT EXISTS assignments",
			"FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE RESTRICT",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active_per_device ON assignments (device_id) WHERE status = 'active'",
			"'pending_approval', 'active', 'pending_return', 'returned', 'lost', 'damaged'",
			"DROP TABLE IF EXISTS assignments",
		}
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", dialect, sub)
			}
		}
	}
}

func TestIdentityMigrationContainsSequences(t *testing.T) {
	content := readMigration(t, "postgres", "create_employees")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS employees",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_email ON employees (email)",
		"CREATE TABLE IF NOT EXISTS password_reset_tokens",
		"CREATE TABLE IF NOT EXISTS code_sequences",
		"DROP TABLE IF EXISTS employees",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirsAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDirs("migrations/postgres", "migrations/sqlite"); err != nil {
		t.Fatalf("ValidateDirs: %v", err)
	}
}

func TestValidateDirsRejectsBadFilename(t *testing.T) {
	bad := t.TempDir()
	if err := os.WriteFile(filepath.Join(bad, "oops.sql"), []byte("-- +goose Up"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDirs(bad); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestValidateDirsRejectsDialectDrift(t *testing.T) {
	pg, lite := t.TempDir(), t.TempDir()
	if _, err := migrate.CreateSQLMigration("add device tags", pg); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := migrate.ValidateDirs(pg, lite); err == nil {
		t.Fatal("expected a postgres-only migration to fail validation")
	}
}

func TestCreateSQLMigrationPairsDialects(t *testing.T) {
	pg, lite := t.TempDir(), t.TempDir()
	paths, err := migrate.CreateSQLMigration("Add Device Tags!", pg, lite)
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != filepath.Base(paths[1]) {
		t.Fatalf("expected one shared filename, got %v", paths)
	}
	if !strings.HasSuffix(paths[0], "_add_device_tags.sql") {
		t.Fatalf("unexpected filename %q", paths[0])
	}
	if err := migrate.ValidateDirs(pg, lite); err != nil {
		t.Fatalf("created migrations should validate: %v", err)
	}
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	if _, err := migrate.CreateSQLMigration("!!!", t.TempDir()); err == nil {
		t.Fatal("expected error for name without usable characters")
	}
}

func TestUpAppliesSQLiteSchema(t *testing.T) {
	client := dbtest.Open(t)
	for _, table := range []string{"employees", "password_reset_tokens", "code_sequences", "devices", "assignments", "ticket_requests"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Errorf("expected table %s to exist", table)
		}
	}
}
