package db

import (
	"fmt"

	"gorm.io/gorm"

	"school_asset_server/internal/models"
	"school_asset_server/pkg/colors"
)

// RunMigrations creates or updates the tenant directory schema
func RunMigrations(db *gorm.DB) error {
	colors.PrintSubHeader("Running Database Migrations")

	if err := db.AutoMigrate(&models.Tenant{}); err != nil {
		return fmt.Errorf("tenant table migration failed: %w", err)
	}
	colors.PrintSuccess("✓ Tenants table ready")

	if err := addBackendKeyIndex(db); err != nil {
		return fmt.Errorf("failed to add backend key index: %w", err)
	}

	colors.PrintSuccess("Database migrations completed successfully")
	return nil
}

// addBackendKeyIndex indexes tenants by the backend they point at, so the
// CLI can find every tenant sharing one spreadsheet or project.
func addBackendKeyIndex(db *gorm.DB) error {
	const name = "idx_tenants_backend_key"
	if db.Migrator().HasIndex(&models.Tenant{}, name) {
		colors.PrintInfo("Backend key index already exists")
		return nil
	}
	colors.PrintInfo("Creating backend key index on tenants...")
	return db.Exec(fmt.Sprintf(
		"CREATE INDEX %s ON tenants(db_type, spreadsheet_id, project_id) WHERE deleted_at IS NULL", name,
	)).Error
}
