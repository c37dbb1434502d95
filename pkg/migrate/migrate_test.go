package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected shipped migrations to validate: %v", err)
	}
}

func TestCallbackReceiptMigrationKeysByPaymentAndFingerprint(t *testing.T) {
	content := readMigration(t, "*_create_callback_receipts.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS callback_receipts",
		"PRIMARY KEY (payment_id, fingerprint)",
		"FOREIGN KEY (payment_id) REFERENCES payments(id)",
		"DROP TABLE IF EXISTS callback_receipts",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationConstrainsStatuses(t *testing.T) {
	content := readMigration(t, "*_create_orders_and_payments.sql")
	for _, sub := range []string{
		"order_id BIGINT NOT NULL UNIQUE",
		"'PENDING_PAYMENT'",
		"'REFUNDING'",
		"CHECK (quantity >= 1)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad-name.sql", "-- +goose Up\n-- +goose Down\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}

	dir = t.TempDir()
	writeFile(t, dir, "20260101000000_only_up.sql", "-- +goose Up\nSELECT 1;\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing down error")
	}

	dir = t.TempDir()
	writeFile(t, dir, "20260101000000_a.sql", "-- +goose Up\n-- +goose Down\n")
	writeFile(t, dir, "20260101000000_b.sql", "-- +goose Up\n-- +goose Down\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	path, err := createSQLMigrationAt(dir, " Add Refund Columns! ", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260301090000_add_refund_columns.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := createSQLMigrationAt(dir, "add refund columns", now); err == nil {
		t.Fatal("expected duplicate file error")
	}
	if _, err := createSQLMigrationAt(dir, "!!!", now); err == nil {
		t.Fatal("expected empty name error")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
