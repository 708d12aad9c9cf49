package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func readEmbedded(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(Embedded(), "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := fs.ReadFile(Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, want ...string) {
	t.Helper()
	for _, sub := range want {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	versions, err := Validate(Embedded())
	if err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	if len(versions) < 4 {
		t.Fatalf("expected at least 4 migrations, got %v", versions)
	}
}

func TestProductsMigrationGuardsCount(t *testing.T) {
	content := readEmbedded(t, "create_products_and_customers")
	assertContains(t, content,
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT chk_products_count_non_negative CHECK (count >= 0)",
		"CREATE TABLE IF NOT EXISTS customers",
		"DROP TABLE IF EXISTS products",
	)
}

func TestSalesMigrationCascadesLineItems(t *testing.T) {
	content := readEmbedded(t, "create_sales")
	assertContains(t, content,
		"FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"UNIQUE (sale_id, position)",
	)
}

func TestDropsMigrationDefinesReasonsAndWindow(t *testing.T) {
	content := readEmbedded(t, "create_inventory_drops")
	assertContains(t, content,
		"CREATE TYPE drop_reason_enum",
		"'end_of_day'",
		"'overproduction'",
		"CHECK (undo_expires_at > dropped_at)",
		"WHERE is_undone = false",
		"DROP TYPE IF EXISTS drop_reason_enum",
	)
}

func TestOutboxMigrationMatchesEventTypes(t *testing.T) {
	content := readEmbedded(t, "create_outbox")
	assertContains(t, content,
		"'sale_created'",
		"'inventory_drop_undone'",
		"CREATE TYPE aggregate_type_enum AS ENUM ('sale', 'inventory_drop')",
		"payload_json jsonb NOT NULL",
	)
}

func TestValidateRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"create_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"20260101000000_things.sql": {Data: []byte("-- +goose Up\n")},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
	}
	for name, fsys := range cases {
		if _, err := Validate(fsys); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestCreateWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC)

	path, err := Create(dir, "Add Drop Notes!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260601123000_add_drop_notes.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read created: %v", err)
	}
	assertContains(t, string(data), "-- +goose Up", "-- +goose Down", "rollback add_drop_notes")

	if _, err := Create(dir, "Add Drop Notes!", now); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}
	if _, err := Create(dir, "!!!", now); err == nil {
		t.Fatalf("expected empty slug to fail")
	}
}
