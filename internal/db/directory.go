package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"school_asset_server/internal/models"
)

// TenantDirectory resolves explicit tenant ids to backend configs.
type TenantDirectory struct {
	db *gorm.DB
}

func NewTenantDirectory(db *gorm.DB) *TenantDirectory {
	return &TenantDirectory{db: db}
}

// Lookup returns the tenant with id, or nil when none is registered.
func (d *TenantDirectory) Lookup(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup tenant %s: %w", id, err)
	}
	return &t, nil
}

// Save creates or replaces a tenant entry.
func (d *TenantDirectory) Save(ctx context.Context, t *models.Tenant) error {
	if err := d.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("save tenant %s: %w", t.ID, err)
	}
	return nil
}

func (d *TenantDirectory) List(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := d.db.WithContext(ctx).Order("id").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

func (d *TenantDirectory) Delete(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Tenant{})
	if res.Error != nil {
		return fmt.Errorf("delete tenant %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("tenant %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
