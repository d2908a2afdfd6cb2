package db

import (
	"context"
	"os"
	"testing"

	"school_asset_server/internal/models"
)

// TestTenantDirectory needs a Postgres DSN in TEST_DATABASE_DSN.
func TestTenantDirectory(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skipf("TEST_DATABASE_DSN not set, skipping tenant directory test")
	}
	if err := Initialize(dsn); err != nil {
		t.Skipf("Database not available for testing: %v", err)
	}
	defer Close()

	ctx := context.Background()
	dir := NewTenantDirectory(GetDB())

	tenant := &models.Tenant{ID: "test-school", Name: "Test School", DBType: "sheets", SpreadsheetID: "sheet-123"}
	if err := dir.Save(ctx, tenant); err != nil {
		t.Fatalf("Failed to save tenant: %v", err)
	}
	defer dir.Delete(ctx, tenant.ID)

	got, err := dir.Lookup(ctx, "test-school")
	if err != nil {
		t.Fatalf("Failed to look up tenant: %v", err)
	}
	if got == nil || got.SpreadsheetID != "sheet-123" {
		t.Errorf("Expected spreadsheet sheet-123, got %+v", got)
	}

	missing, err := dir.Lookup(ctx, "no-such-school")
	if err != nil {
		t.Errorf("Expected no error for unknown tenant, got %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown tenant, got %+v", missing)
	}
}
